package transformer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// WarnDateFallback is raised once per run when the strict layout fails.
const WarnDateFallback = "date_fallback"

// FallbackLayouts are tried in order once the strict layout fails for any
// cell. Month-first precedes day-first, so 03/04/2023 is March 4.
var FallbackLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"01-02-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// ResolveDates converts Column to calendar dates. Every present cell is
// first parsed with Layout. If any cell fails, one warning is raised and the
// whole column is re-parsed with Fallback (FallbackLayouts when nil); cells
// matching no layout become missing rather than failing the run.
type ResolveDates struct {
	Column   string
	Layout   string
	Fallback []string
}

func (ResolveDates) Name() string { return "resolve_dates" }

func (d ResolveDates) Apply(ctx context.Context, t *table.Table) ([]etlerr.Warning, error) {
	col := d.Column
	if col == "" {
		col = "order_date"
	}
	layout := d.Layout
	if layout == "" {
		layout = "2006-01-02"
	}
	ci, ok := t.Index(col)
	if !ok {
		return nil, &etlerr.TransformError{Step: d.Name(), Err: fmt.Errorf("missing date column %s", col)}
	}

	n := t.Len()
	raw := make([]string, n)
	present := make([]bool, n)
	out := make([]any, n)
	failed := 0
	for r := 0; r < n; r++ {
		switch v := t.Value(r, ci).(type) {
		case nil:
			continue
		case civil.Date:
			out[r] = v
			continue
		case string:
			raw[r] = v
		case int64:
			raw[r] = strconv.FormatInt(v, 10)
		case float64:
			raw[r] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			raw[r] = fmt.Sprint(v)
		}
		present[r] = true
		tm, err := time.Parse(layout, raw[r])
		if err != nil {
			failed++
			continue
		}
		out[r] = civil.DateOf(tm)
	}

	var warns []etlerr.Warning
	if failed > 0 {
		layouts := d.Fallback
		if layouts == nil {
			layouts = FallbackLayouts
		}
		unresolved := 0
		for r := 0; r < n; r++ {
			if !present[r] {
				continue
			}
			if date, ok := parseAny(raw[r], layouts); ok {
				out[r] = date
			} else {
				out[r] = nil
				unresolved++
			}
		}
		warns = append(warns, etlerr.Warning{
			Step:  d.Name(),
			Kind:  WarnDateFallback,
			Count: failed,
			Message: fmt.Sprintf("%d values in %s did not match %s; column re-parsed with fallback layouts, %d left missing",
				failed, col, layout, unresolved),
		})
	}

	if err := t.SetColumn(col, table.Date, out); err != nil {
		return nil, &etlerr.TransformError{Step: d.Name(), Err: err}
	}
	log := logging.FromContext(ctx)
	log.Info().
		Str("step", d.Name()).
		Str("column", col).
		Bool("fallback", failed > 0).
		Msg("dates resolved")
	return warns, nil
}

func parseAny(s string, layouts []string) (civil.Date, bool) {
	for _, l := range layouts {
		if tm, err := time.Parse(l, s); err == nil {
			return civil.DateOf(tm), true
		}
	}
	return civil.Date{}, false
}
