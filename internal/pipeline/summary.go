package pipeline

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"retailetl/internal/etlerr"
	"retailetl/internal/table"
	"retailetl/internal/transformer"
)

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Rows        int
	Columns     int
	ColumnNames []string

	// DateMin and DateMax span the present order dates; HasDates is false
	// when every date is missing.
	DateMin  civil.Date
	DateMax  civil.Date
	HasDates bool

	// Totals skip missing cells.
	TotalSalePrice decimal.Decimal
	TotalProfit    decimal.Decimal

	Checksum uint64
	Loaded   int64
	Batches  int64
	Warnings []etlerr.Warning
	Elapsed  time.Duration
}

// Summarize computes the data side of a Summary from the final table.
// Absent columns contribute nothing.
func Summarize(t *table.Table, dateColumn string) Summary {
	s := Summary{
		Rows:           t.Len(),
		Columns:        t.Width(),
		ColumnNames:    t.Columns(),
		TotalSalePrice: sumColumn(t, transformer.ColSalePrice),
		TotalProfit:    sumColumn(t, transformer.ColProfit),
		Checksum:       t.Checksum(),
	}

	if ci, ok := t.Index(dateColumn); ok {
		for r := 0; r < t.Len(); r++ {
			d, ok := t.Value(r, ci).(civil.Date)
			if !ok {
				continue
			}
			if !s.HasDates || d.Before(s.DateMin) {
				s.DateMin = d
			}
			if !s.HasDates || d.After(s.DateMax) {
				s.DateMax = d
			}
			s.HasDates = true
		}
	}
	return s
}

func sumColumn(t *table.Table, col string) decimal.Decimal {
	total := decimal.Zero
	ci, ok := t.Index(col)
	if !ok {
		return total
	}
	for r := 0; r < t.Len(); r++ {
		if v := t.Float(r, ci); v.Valid {
			total = total.Add(decimal.NewFromFloat(v.Float64))
		}
	}
	return total
}

// Margin returns total profit over total sale price. ok is false when the
// sale price total is zero and the ratio is undefined.
func (s Summary) Margin() (m decimal.Decimal, ok bool) {
	if s.TotalSalePrice.IsZero() {
		return decimal.Zero, false
	}
	return s.TotalProfit.Div(s.TotalSalePrice), true
}

// MarginString formats Margin to four places, or "undefined".
func (s Summary) MarginString() string {
	m, ok := s.Margin()
	if !ok {
		return "undefined"
	}
	return m.StringFixed(4)
}

// DateRange formats the date span as "min..max", or "n/a" with no dates.
func (s Summary) DateRange() string {
	if !s.HasDates {
		return "n/a"
	}
	return s.DateMin.String() + ".." + s.DateMax.String()
}

// MarshalZerologObject lets the summary be logged as one structured event.
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("rows", s.Rows).
		Int("columns", s.Columns).
		Strs("column_names", s.ColumnNames).
		Str("date_range", s.DateRange()).
		Str("total_sale_price", s.TotalSalePrice.StringFixed(2)).
		Str("total_profit", s.TotalProfit.StringFixed(2)).
		Str("margin", s.MarginString()).
		Str("checksum", fmt.Sprintf("%016x", s.Checksum)).
		Int64("loaded", s.Loaded).
		Int64("batches", s.Batches).
		Int("warnings", len(s.Warnings)).
		Dur("elapsed", s.Elapsed)
}
