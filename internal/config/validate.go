package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	csvparser "retailetl/internal/parser/csv"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config, e.g. "storage.batch_size".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg without touching the filesystem
// or the network.
func Validate(cfg Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(cfg.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}

	if strings.TrimSpace(cfg.Source.Path) == "" {
		add(SeverityError, "source.path", "source path must not be empty")
	}
	if n := utf8.RuneCountInString(cfg.Source.Comma); n > 1 {
		add(SeverityWarning, "source.comma", "only the first rune of %q is used", cfg.Source.Comma)
	}
	if _, err := csvparser.LookupEncoding(cfg.Source.Encoding); err != nil {
		add(SeverityError, "source.encoding", "%v", err)
	}
	if cfg.Source.Member != "" && !strings.HasSuffix(strings.ToLower(cfg.Source.Path), ".zip") {
		add(SeverityWarning, "source.member", "member %q is ignored because source.path is not a .zip", cfg.Source.Member)
	}

	if strings.TrimSpace(cfg.Transform.DateColumn) == "" {
		add(SeverityError, "transform.date_column", "date column must not be empty")
	}
	if strings.TrimSpace(cfg.Transform.DateLayout) == "" {
		add(SeverityError, "transform.date_layout", "date layout must not be empty")
	}
	for _, c := range cfg.Transform.DropColumns {
		if strings.TrimSpace(c) == "" {
			add(SeverityWarning, "transform.drop_columns", "empty column name is ignored")
		}
	}

	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		add(SeverityError, "storage.dsn", "connection descriptor must not be empty (set DB_CONNECTION_STRING)")
	}
	if strings.TrimSpace(cfg.Storage.Table) == "" {
		add(SeverityError, "storage.table", "table must not be empty")
	}
	if cfg.Storage.BatchSize <= 0 {
		add(SeverityError, "storage.batch_size", "batch size must be > 0, got %d", cfg.Storage.BatchSize)
	} else if cfg.Storage.BatchSize != 1000 {
		add(SeverityWarning, "storage.batch_size", "batch size %d differs from the standard 1000", cfg.Storage.BatchSize)
	}

	switch cfg.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(cfg.Metrics.PushgatewayURL) == "" {
			add(SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL")
		}
	case "datadog":
		if strings.TrimSpace(cfg.Metrics.DatadogAddr) == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires an agent address")
		}
	default:
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics will be disabled", cfg.Metrics.Backend)
	}

	return issues
}
