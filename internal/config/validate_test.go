package config

import "testing"

func findIssue(issues []Issue, path string) (Issue, bool) {
	for _, iss := range issues {
		if iss.Path == path {
			return iss, true
		}
	}
	return Issue{}, false
}

func TestValidateDefaultsClean(t *testing.T) {
	t.Parallel()

	if issues := Validate(Default()); len(issues) != 0 {
		t.Fatalf("Validate(Default()) = %v, want none", issues)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		sev    IssueSeverity
	}{
		{"empty job", func(c *Config) { c.Job = " " }, "job", SeverityError},
		{"empty source", func(c *Config) { c.Source.Path = "" }, "source.path", SeverityError},
		{"member without zip", func(c *Config) { c.Source.Member = "orders.csv" }, "source.member", SeverityWarning},
		{"multi-rune comma", func(c *Config) { c.Source.Comma = ";;" }, "source.comma", SeverityWarning},
		{"empty dsn", func(c *Config) { c.Storage.DSN = "" }, "storage.dsn", SeverityError},
		{"empty table", func(c *Config) { c.Storage.Table = "" }, "storage.table", SeverityError},
		{"zero batch", func(c *Config) { c.Storage.BatchSize = 0 }, "storage.batch_size", SeverityError},
		{"odd batch", func(c *Config) { c.Storage.BatchSize = 500 }, "storage.batch_size", SeverityWarning},
		{"blank drop column", func(c *Config) { c.Transform.DropColumns = []string{"region", " "} }, "transform.drop_columns", SeverityWarning},
		{"unknown encoding", func(c *Config) { c.Source.Encoding = "ebcdic" }, "source.encoding", SeverityError},
		{"pushgateway without url", func(c *Config) {
			c.Metrics.Backend = "pushgateway"
			c.Metrics.PushgatewayURL = ""
		}, "metrics.pushgateway_url", SeverityError},
		{"unknown metrics", func(c *Config) { c.Metrics.Backend = "statsd" }, "metrics.backend", SeverityWarning},
		{"empty date column", func(c *Config) { c.Transform.DateColumn = "" }, "transform.date_column", SeverityError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(&cfg)
			issues := Validate(cfg)
			iss, ok := findIssue(issues, tc.path)
			if !ok {
				t.Fatalf("no issue at %s in %v", tc.path, issues)
			}
			if iss.Severity != tc.sev {
				t.Fatalf("severity = %s, want %s", iss.Severity, tc.sev)
			}
			if got := HasErrors(issues); got != (tc.sev == SeverityError) {
				t.Fatalf("HasErrors = %v", got)
			}
		})
	}
}
