// Package csv reads a delimited file with a header row into a table.Table.
//
// Cells that exactly match one of the configured missing tokens become nil,
// the table's missing marker, at parse time. After reading, each column is
// typed the way a dataframe reader would: all-integer columns become int64,
// all-numeric columns float64, everything else stays text.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// Options configures Read. Zero values select the defaults.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// MissingTokens are matched exactly against raw cells. A nil slice means
	// DefaultMissingTokens; an empty non-nil slice disables matching.
	MissingTokens []string

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool

	// Encoding names the source character set (utf-8, latin1,
	// windows-1252, utf-16). Empty means UTF-8.
	Encoding string

	// KeepText skips type inference and leaves every present cell a string.
	KeepText bool

	// Name labels errors and logs (usually the source path).
	Name string
}

// DefaultMissingTokens are the raw values treated as missing when Options
// does not override them.
var DefaultMissingTokens = []string{"Not Available", "unknown", "N/A", "NA", "null", "none", ""}

// Read parses r into a Table. Any failure, including an empty input, a
// missing header or a row whose field count differs from the header, is
// returned as *etlerr.IngestionError.
func Read(ctx context.Context, r io.Reader, opt Options) (*table.Table, error) {
	log := logging.FromContext(ctx).With().Str("step", "read").Logger()
	fail := func(err error) error { return &etlerr.IngestionError{Path: opt.Name, Err: err} }

	src, err := decode(r, opt.Encoding)
	if err != nil {
		return nil, fail(err)
	}
	cr := csv.NewReader(src)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// 0 pins every record to the header's width.
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fail(errors.New("empty input: no header row"))
	}
	if err != nil {
		return nil, fail(fmt.Errorf("read header: %w", err))
	}
	header = StripHeaderBOM(append([]string(nil), header...))

	tokens := opt.MissingTokens
	if tokens == nil {
		tokens = DefaultMissingTokens
	}
	missing := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		missing[tok] = struct{}{}
	}

	var rows [][]any
	for {
		if err := ctx.Err(); err != nil {
			return nil, fail(err)
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fail(fmt.Errorf("read row %d: %w", len(rows)+2, err))
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			if _, ok := missing[cell]; ok {
				continue
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}

	t, err := table.New(header, rows)
	if err != nil {
		return nil, fail(err)
	}
	if !opt.KeepText {
		InferTypes(t)
	}

	ev := log.Debug()
	for i, c := range header {
		n := 0
		for _, row := range rows {
			if row[i] == nil {
				n++
			}
		}
		if n > 0 {
			ev = ev.Int("missing."+c, n)
		}
	}
	ev.Msg("missing cells per column")
	log.Info().Int("rows", t.Len()).Int("columns", t.Width()).Str("source", opt.Name).Msg("source read")

	return t, nil
}

// InferTypes converts every column whose present cells all parse as
// integers to int64, else as floats to float64. Other columns, including
// all-missing ones, stay text.
func InferTypes(t *table.Table) {
	rows := t.Rows()
	for c := 0; c < t.Width(); c++ {
		kind := inferColumn(rows, c)
		if kind == table.Text {
			continue
		}
		for _, row := range rows {
			s, ok := row[c].(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if kind == table.Integer {
				n, _ := strconv.ParseInt(s, 10, 64)
				row[c] = n
			} else {
				f, _ := strconv.ParseFloat(s, 64)
				row[c] = f
			}
		}
		t.SetKind(c, kind)
	}
}

func inferColumn(rows [][]any, c int) table.Kind {
	present := 0
	allInt := true
	for _, row := range rows {
		s, ok := row[c].(string)
		if !ok {
			continue
		}
		present++
		s = strings.TrimSpace(s)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			allInt = false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return table.Text
		}
	}
	switch {
	case present == 0:
		return table.Text
	case allInt:
		return table.Integer
	default:
		return table.Float
	}
}
