package storage

import (
	"context"
	"fmt"
	"time"

	"retailetl/internal/logging"
)

// CopyFn is a backend's bulk insert: it inserts rows aligned to columns and
// returns the number of rows inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadStats summarizes a LoadBatches call.
type LoadStats struct {
	Rows    int64
	Batches int64
}

// LoadBatches splits rows into consecutive batches of batchSize and calls
// copyFn once per batch, in order. It stops at the first error and returns
// the totals reached so far. A progress line is logged per batch.
func LoadBatches(ctx context.Context, columns []string, rows [][]any, batchSize int, copyFn CopyFn) (LoadStats, error) {
	if batchSize <= 0 {
		return LoadStats{}, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return LoadStats{}, fmt.Errorf("copyFn must not be nil")
	}

	log := logging.FromContext(ctx)
	var (
		st        LoadStats
		start     = time.Now()
		lastFlush = start
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		hi := min(lo+batchSize, len(rows))

		n, err := copyFn(ctx, columns, rows[lo:hi])
		st.Rows += n
		if err != nil {
			log.Error().Err(err).
				Int64("batch", st.Batches+1).
				Int64("total_inserted", st.Rows).
				Msg("batch insert failed")
			return st, err
		}
		st.Batches++

		now := time.Now()
		rps := 0.0
		if d := now.Sub(lastFlush); d > 0 {
			rps = float64(n) / d.Seconds()
		}
		log.Debug().
			Int64("batch", st.Batches).
			Int64("inserted", n).
			Int64("total_inserted", st.Rows).
			Float64("rps", rps).
			Dur("elapsed", now.Sub(start)).
			Msg("batch flushed")
		lastFlush = now
	}
	return st, nil
}

// ChunkByParams splits rows so that no chunk binds more than maxParams
// placeholders. It is used by backends whose multi-row INSERT is limited by
// the driver's parameter cap.
func ChunkByParams(rows [][]any, width, maxParams int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := len(rows)
	if width > 0 && maxParams > 0 {
		per = max(1, maxParams/width)
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for lo := 0; lo < len(rows); lo += per {
		out = append(out, rows[lo:min(lo+per, len(rows))])
	}
	return out
}
