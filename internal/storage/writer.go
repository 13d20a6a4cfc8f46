package storage

import (
	"context"
	"errors"

	"retailetl/internal/ddl"
	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 1000

// Write replaces cfg.Table with the contents of t: one connection, one
// transaction covering DROP, CREATE and every insert batch, then commit. Any
// failure rolls back and is returned as *etlerr.PersistenceError. The
// connection is closed on every path.
func Write(ctx context.Context, cfg Config, t *table.Table) (st LoadStats, err error) {
	log := logging.FromContext(ctx).With().
		Str("backend", cfg.Kind).
		Str("table", cfg.Table).
		Logger()

	repo, err := New(ctx, cfg)
	if err != nil {
		return st, &etlerr.PersistenceError{Op: "connect", Err: err}
	}
	defer repo.Close()

	tx, err := repo.Begin(ctx)
	if err != nil {
		return st, &etlerr.PersistenceError{Op: "begin", Err: err}
	}
	committing := false
	defer func() {
		if err == nil || committing {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
			err = errors.Join(err, rbErr)
		}
	}()

	def := ddl.FromTable(t, cfg.Table, repo.Dialect())
	if err = tx.ReplaceTable(ctx, def); err != nil {
		return st, &etlerr.PersistenceError{Op: "replace_table", Err: err}
	}
	log.Info().Int("columns", len(def.Columns)).Msg("destination table replaced")

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	st, err = LoadBatches(ctx, def.Names(), t.Rows(), batch, tx.CopyFrom)
	if err != nil {
		return st, &etlerr.PersistenceError{Op: "insert", Err: err}
	}

	committing = true
	if err = tx.Commit(); err != nil {
		return st, &etlerr.PersistenceError{Op: "commit", Err: err}
	}
	log.Info().
		Int64("rows", st.Rows).
		Int64("batches", st.Batches).
		Msg("load committed")
	return st, nil
}
