package transformer

import (
	"context"
	"slices"

	"retailetl/internal/config"
	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// Prune drops the source pricing columns plus any extra Columns if present.
// The pricing columns are always dropped. Absent columns are skipped, so
// pruning an already-pruned table is a no-op.
type Prune struct {
	Columns []string
}

func (Prune) Name() string { return "prune" }

func (p Prune) Apply(ctx context.Context, t *table.Table) ([]etlerr.Warning, error) {
	cols := append([]string(nil), config.DefaultDropColumns...)
	for _, c := range p.Columns {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	dropped := t.Drop(cols...)
	log := logging.FromContext(ctx)
	log.Info().
		Str("step", p.Name()).
		Strs("dropped", dropped).
		Strs("columns", t.Columns()).
		Msg("columns pruned")
	return nil, nil
}
