package transformer

import (
	"context"
	"fmt"
	"strings"

	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// Source and derived pricing columns.
const (
	ColListPrice       = "list_price"
	ColDiscountPercent = "discount_percent"
	ColCostPrice       = "cost_price"

	ColDiscount  = "discount"
	ColSalePrice = "sale_price"
	ColProfit    = "profit"
)

// DiscountScale converts discount_percent from whole percentage points
// (20 means 20%) to a fraction.
const DiscountScale = 0.01

// Warning kinds raised by Enrich.
const (
	WarnNegativeSalePrice = "negative_sale_price"
	WarnNegativeProfit    = "negative_profit"
)

// Enrich appends the derived pricing columns:
//
//	discount   = list_price × discount_percent × 0.01
//	sale_price = list_price − discount
//	profit     = sale_price − cost_price
//
// A missing input leaves only its dependent outputs missing. Rows with a
// negative sale price or profit are counted and reported as warnings; the
// data itself is not changed.
type Enrich struct{}

func (Enrich) Name() string { return "enrich" }

func (e Enrich) Apply(ctx context.Context, t *table.Table) ([]etlerr.Warning, error) {
	required := []string{ColListPrice, ColDiscountPercent, ColCostPrice}

	var absent []string
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i, ok := t.Index(c)
		if !ok {
			absent = append(absent, c)
			continue
		}
		idx[c] = i
	}
	if len(absent) > 0 {
		return nil, &etlerr.TransformError{Step: e.Name(), Err: fmt.Errorf("missing required columns: %s", strings.Join(absent, ", "))}
	}
	for _, c := range required {
		if err := checkNumeric(t, c, idx[c]); err != nil {
			return nil, &etlerr.TransformError{Step: e.Name(), Err: err}
		}
	}

	n := t.Len()
	discount := make([]any, n)
	sale := make([]any, n)
	profit := make([]any, n)

	var negSale, negProfit int
	for r := 0; r < n; r++ {
		list := t.Float(r, idx[ColListPrice])
		pct := t.Float(r, idx[ColDiscountPercent])
		cost := t.Float(r, idx[ColCostPrice])

		d := list.Mul(pct).Scale(DiscountScale)
		s := list.Sub(d)
		p := s.Sub(cost)

		discount[r], sale[r], profit[r] = d.Cell(), s.Cell(), p.Cell()
		if s.Valid && s.Float64 < 0 {
			negSale++
		}
		if p.Valid && p.Float64 < 0 {
			negProfit++
		}
	}

	for _, col := range []struct {
		name string
		vals []any
	}{{ColDiscount, discount}, {ColSalePrice, sale}, {ColProfit, profit}} {
		if err := t.SetColumn(col.name, table.Float, col.vals); err != nil {
			return nil, &etlerr.TransformError{Step: e.Name(), Err: err}
		}
	}

	var warns []etlerr.Warning
	if negSale > 0 {
		warns = append(warns, etlerr.Warning{
			Step:    e.Name(),
			Kind:    WarnNegativeSalePrice,
			Count:   negSale,
			Message: fmt.Sprintf("%d rows have a negative sale price", negSale),
		})
	}
	if negProfit > 0 {
		warns = append(warns, etlerr.Warning{
			Step:    e.Name(),
			Kind:    WarnNegativeProfit,
			Count:   negProfit,
			Message: fmt.Sprintf("%d rows have a negative profit (%.1f%% of rows)", negProfit, 100*float64(negProfit)/float64(n)),
		})
	}

	log := logging.FromContext(ctx)
	log.Info().
		Str("step", e.Name()).
		Int("rows", n).
		Strs("added", []string{ColDiscount, ColSalePrice, ColProfit}).
		Msg("pricing metrics derived")
	return warns, nil
}

// checkNumeric rejects a text column that holds any present value; an
// all-missing column is accepted and simply yields missing outputs.
func checkNumeric(t *table.Table, col string, i int) error {
	if t.Kind(i) == table.Integer || t.Kind(i) == table.Float {
		return nil
	}
	for r := 0; r < t.Len(); r++ {
		if v := t.Value(r, i); v != nil {
			return fmt.Errorf("column %s is not numeric: row %d has %q", col, r+1, fmt.Sprint(v))
		}
	}
	return nil
}
