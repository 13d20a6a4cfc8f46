// Package transformer holds the in-place table transforms that run between
// the reader and the writer, and the Chain that sequences them.
//
// A step either succeeds, possibly returning non-fatal warnings, or fails
// with an error that stops the run. Steps never drop rows.
package transformer

import (
	"context"
	"errors"
	"time"

	"retailetl/internal/config"
	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// Transformer is a single transform step.
type Transformer interface {
	Name() string
	Apply(ctx context.Context, t *table.Table) ([]etlerr.Warning, error)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every step in order. Warnings are logged as they are raised and
// returned together; the first error stops the chain and is returned as a
// *etlerr.TransformError naming the step.
func (c Chain) Apply(ctx context.Context, t *table.Table) ([]etlerr.Warning, error) {
	log := logging.FromContext(ctx)

	var all []etlerr.Warning
	for _, step := range c {
		start := time.Now()
		warns, err := step.Apply(ctx, t)
		for _, w := range warns {
			log.Warn().
				Str("step", w.Step).
				Str("kind", w.Kind).
				Int("count", w.Count).
				Msg(w.Message)
		}
		all = append(all, warns...)
		if err != nil {
			var te *etlerr.TransformError
			if !errors.As(err, &te) {
				err = &etlerr.TransformError{Step: step.Name(), Err: err}
			}
			return all, err
		}
		log.Debug().
			Str("step", step.Name()).
			Int("columns", t.Width()).
			Dur("took", time.Since(start)).
			Msg("transform step done")
	}
	return all, nil
}

// Default returns the standard chain: normalize column names, derive pricing
// metrics, resolve the order date, then drop the source pricing columns.
func Default(cfg config.Transform) Chain {
	return Chain{
		Normalize{},
		Enrich{},
		ResolveDates{Column: cfg.DateColumn, Layout: cfg.DateLayout},
		Prune{Columns: cfg.DropColumns},
	}
}
