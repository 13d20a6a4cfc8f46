// Command retailetl loads a retail orders CSV, derives pricing metrics and
// replaces a database table with the result.
//
//	retailetl run --config configs/retail_orders.json
//	retailetl run --source orders.csv.zip --dsn postgres://etl@db/retail
//	retailetl validate --config configs/retail_orders.json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"retailetl/internal/config"
	"retailetl/internal/logging"
	"retailetl/internal/metrics"
	"retailetl/internal/metrics/datadog"
	"retailetl/internal/metrics/prompush"
	"retailetl/internal/pipeline"

	// Every backend is compiled in; the connection descriptor picks one.
	_ "retailetl/internal/storage/all"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a process exit code through the cobra error path.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

type runFlags struct {
	configPath     string
	source         string
	dsn            string
	table          string
	metricsBackend string
	verbose        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Getenv)
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:           "retailetl",
		Short:         "Batch ETL for retail order CSV files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var rf runFlags
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, transform and load one source file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rf.configPath, getenv)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return &exitErr{code: 1, err: err}
			}
			applyFlags(cmd, &cfg, rf)
			return runPipeline(cmd.Context(), cmd.ErrOrStderr(), cfg)
		},
	}
	f := runCmd.Flags()
	f.StringVar(&rf.configPath, "config", "", "JSON config file (defaults apply when empty)")
	f.StringVar(&rf.source, "source", "", "source CSV or .zip path (overrides source.path)")
	f.StringVar(&rf.dsn, "dsn", "", "destination descriptor, e.g. sqlite:///retail_orders.db (overrides storage.dsn)")
	f.StringVar(&rf.table, "table", "", "destination table (overrides storage.table)")
	f.StringVar(&rf.metricsBackend, "metrics-backend", "", "none, pushgateway or datadog (overrides metrics.backend)")
	f.BoolVarP(&rf.verbose, "verbose", "v", false, "debug logging")

	var validatePath string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and print any issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(validatePath, getenv)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return &exitErr{code: 1, err: err}
			}
			issues := config.Validate(cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return &exitErr{code: 1, err: fmt.Errorf("configuration is invalid: %s", validatePath)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", displayPath(validatePath))
			return nil
		},
	}
	validateCmd.Flags().StringVar(&validatePath, "config", "", "JSON config file")

	root.AddCommand(runCmd, validateCmd)
	return root
}

// applyFlags copies explicitly set flags over the loaded config; flags beat
// environment, which beats the file.
func applyFlags(cmd *cobra.Command, cfg *config.Config, rf runFlags) {
	set := cmd.Flags().Changed
	if set("source") {
		cfg.Source.Path = rf.source
	}
	if set("dsn") {
		cfg.Storage.DSN = rf.dsn
	}
	if set("table") {
		cfg.Storage.Table = rf.table
	}
	if set("metrics-backend") {
		cfg.Metrics.Backend = rf.metricsBackend
	}
	if rf.verbose {
		cfg.Log.Level = "debug"
	}
}

func runPipeline(ctx context.Context, stderr io.Writer, cfg config.Config) error {
	var extra []io.Writer
	if cfg.Log.File != "" {
		lf, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(stderr, "Error: open log file:", err)
			return &exitErr{code: 1, err: err}
		}
		defer lf.Close()
		extra = append(extra, lf)
	}
	log := logging.New(cfg.Log.Level, extra...)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		ev := log.Warn()
		if iss.Severity == config.SeverityError {
			ev = log.Error()
		}
		ev.Str("path", iss.Path).Msg(iss.Message)
	}
	if config.HasErrors(issues) {
		return &exitErr{code: 1, err: errors.New("configuration is invalid")}
	}

	flush := setupMetrics(cfg, log)
	defer flush()

	r := pipeline.NewRunner(cfg, log)
	if _, err := r.Run(ctx); err != nil {
		return &exitErr{code: 1, err: err}
	}
	return nil
}

// setupMetrics installs the configured backend and returns its flush. A
// backend that fails to start leaves metrics disabled.
func setupMetrics(cfg config.Config, log zerolog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "", "none":
		log.Debug().Msg("metrics disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{Addr: cfg.Metrics.DatadogAddr, Tags: []string{"job:" + cfg.Job}})
	default:
		log.Warn().Str("backend", cfg.Metrics.Backend).Msg("unknown metrics backend; metrics disabled")
		return func() {}
	}
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Metrics.Backend).Msg("metrics backend init failed; using nop")
		return func() {}
	}

	metrics.SetBackend(b)
	log.Info().Str("backend", cfg.Metrics.Backend).Msg("metrics enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics flush failed")
		}
	}
}

func displayPath(p string) string {
	if p == "" {
		return "(defaults)"
	}
	return p
}
