// Package pipeline runs one extract, transform and load pass and tracks it
// through an explicit state machine:
//
//	Idle → Extracting → Transforming → Loading → Succeeded
//	any non-terminal state → Failed
//
// A failed stage stops the run; nothing continues in a degraded mode.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"retailetl/internal/config"
	"retailetl/internal/datasource/file"
	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/metrics"
	csvparser "retailetl/internal/parser/csv"
	"retailetl/internal/storage"
	"retailetl/internal/table"
	"retailetl/internal/transformer"
)

// State is a run's position in the state machine.
type State int

const (
	Idle State = iota
	Extracting
	Transforming
	Loading
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Transforming:
		return "transforming"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Succeeded || s == Failed }

var next = map[State]State{
	Idle:         Extracting,
	Extracting:   Transforming,
	Transforming: Loading,
	Loading:      Succeeded,
}

// Runner executes a single run. It is not reusable.
type Runner struct {
	cfg   config.Config
	log   zerolog.Logger
	runID string
	state State

	// Seams for tests; production values come from NewRunner.
	open  func(ctx context.Context) (io.ReadCloser, error)
	chain transformer.Chain
	write func(ctx context.Context, cfg storage.Config, t *table.Table) (storage.LoadStats, error)
}

// NewRunner prepares a run of cfg. Every log line of the run carries its
// run_id and job.
func NewRunner(cfg config.Config, log zerolog.Logger) *Runner {
	id := uuid.NewString()
	src := file.NewLocal(cfg.Source.Path, cfg.Source.Member)
	return &Runner{
		cfg:   cfg,
		log:   log.With().Str("run_id", id).Str("job", cfg.Job).Logger(),
		runID: id,
		open:  src.Open,
		chain: transformer.Default(cfg.Transform),
		write: storage.Write,
	}
}

// State returns the current state.
func (r *Runner) State() State { return r.state }

// RunID returns the run's identifier.
func (r *Runner) RunID() string { return r.runID }

func (r *Runner) advance(to State) {
	if want, ok := next[r.state]; !ok || want != to {
		panic(fmt.Sprintf("pipeline: illegal transition %s → %s", r.state, to))
	}
	r.log.Debug().Stringer("from", r.state).Stringer("to", to).Msg("state change")
	r.state = to
}

// Run executes the run. On failure the Runner ends in Failed and the error is
// a *etlerr.StageError wrapping the typed cause (IngestionError,
// TransformError or PersistenceError).
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.state != Idle {
		return Summary{}, fmt.Errorf("pipeline: runner already used (state %s)", r.state)
	}
	ctx = logging.WithContext(ctx, r.log)
	start := time.Now()
	r.log.Info().
		Str("source", r.cfg.Source.Path).
		Str("table", r.cfg.Storage.Table).
		Msg("run started")

	var (
		tbl      *table.Table
		warnings []etlerr.Warning
		loaded   storage.LoadStats
	)

	err := r.stage(ctx, start, Extracting, func(ctx context.Context) error {
		var err error
		tbl, err = r.extract(ctx)
		return err
	})
	if err == nil {
		err = r.stage(ctx, start, Transforming, func(ctx context.Context) error {
			var err error
			warnings, err = r.chain.Apply(ctx, tbl)
			for _, w := range warnings {
				metrics.RecordWarning(r.cfg.Job, w.Kind, w.Count)
			}
			return err
		})
	}
	if err == nil {
		err = r.stage(ctx, start, Loading, func(ctx context.Context) error {
			var err error
			loaded, err = r.load(ctx, tbl)
			return err
		})
	}
	if err != nil {
		return Summary{RunID: r.runID, Warnings: warnings, Elapsed: time.Since(start)}, err
	}

	r.advance(Succeeded)
	sum := Summarize(tbl, r.cfg.Transform.DateColumn)
	sum.RunID = r.runID
	sum.Loaded = loaded.Rows
	sum.Batches = loaded.Batches
	sum.Warnings = warnings
	sum.Elapsed = time.Since(start)
	r.log.Info().EmbedObject(sum).Msg("run succeeded")
	return sum, nil
}

// stage moves into s, runs fn and records the outcome. A failure moves the
// Runner to Failed and is wrapped in a StageError carrying the time since
// runStart.
func (r *Runner) stage(ctx context.Context, runStart time.Time, s State, fn func(context.Context) error) error {
	r.advance(s)
	start := time.Now()
	r.log.Info().Stringer("stage", s).Msg("stage started")

	err := fn(ctx)
	took := time.Since(start)
	metrics.RecordStep(r.cfg.Job, s.String(), err, took)

	if err != nil {
		r.state = Failed
		elapsed := time.Since(runStart)
		r.log.Error().Err(err).
			Stringer("stage", s).
			Dur("elapsed", elapsed).
			Dur("stage_elapsed", took).
			Msg("stage failed")
		return &etlerr.StageError{Stage: s.String(), Elapsed: elapsed, Err: err}
	}
	r.log.Info().Stringer("stage", s).Dur("elapsed", took).Msg("stage finished")
	return nil
}

func (r *Runner) extract(ctx context.Context) (*table.Table, error) {
	path := r.cfg.Source.Path
	rc, err := r.open(ctx)
	if err != nil {
		return nil, &etlerr.IngestionError{Path: path, Err: err}
	}
	defer rc.Close()

	tbl, err := csvparser.Read(ctx, rc, csvparser.Options{
		Comma:         r.cfg.Source.CommaRune(),
		MissingTokens: r.cfg.Source.MissingTokens,
		Encoding:      r.cfg.Source.Encoding,
		Name:          path,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRows(r.cfg.Job, "read", int64(tbl.Len()))
	return tbl, nil
}

func (r *Runner) load(ctx context.Context, tbl *table.Table) (storage.LoadStats, error) {
	dest, err := storage.ParseDescriptor(r.cfg.Storage.DSN)
	if err != nil {
		return storage.LoadStats{}, &etlerr.PersistenceError{Op: "descriptor", Err: err}
	}
	dest.Table = r.cfg.Storage.Table
	dest.BatchSize = r.cfg.Storage.BatchSize

	st, err := r.write(ctx, dest, tbl)
	metrics.RecordRows(r.cfg.Job, "loaded", st.Rows)
	metrics.RecordBatches(r.cfg.Job, st.Batches)
	return st, err
}
