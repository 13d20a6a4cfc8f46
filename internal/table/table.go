// Package table holds the in-memory working table that flows through the
// pipeline: an ordered header, one kind per column, and rows of cells.
//
// Cells are plain Go values. nil is the missing marker; otherwise a cell is a
// string (Text), int64 (Integer), float64 (Float) or civil.Date (Date). A
// Table is built once by the reader, mutated in place by each transform step
// and consumed by the writer. It is not safe for concurrent use.
package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/zeebo/xxh3"
)

// Kind is the logical type of a column.
type Kind int

const (
	Text Kind = iota
	Integer
	Float
	Date
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Date:
		return "date"
	default:
		return "text"
	}
}

// Table is an ordered set of rows sharing one schema.
type Table struct {
	cols  []string
	kinds []Kind
	index map[string]int
	rows  [][]any
}

// New builds a Table with all columns of kind Text. Column names must be
// unique and every row must be exactly as wide as the header.
func New(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("table: row %d has %d cells, want %d", i, len(r), len(columns))
		}
	}
	return &Table{
		cols:  append([]string(nil), columns...),
		kinds: make([]Kind, len(columns)),
		index: index,
		rows:  rows,
	}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Index returns the position of a column.
func (t *Table) Index(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Kind returns the kind of the column at position i.
func (t *Table) Kind(i int) Kind { return t.kinds[i] }

// SetKind records the kind of the column at position i. Callers are
// responsible for having converted the cells already.
func (t *Table) SetKind(i int, k Kind) { t.kinds[i] = k }

// Value returns the cell at (row, col).
func (t *Table) Value(row, col int) any { return t.rows[row][col] }

// Set replaces the cell at (row, col).
func (t *Table) Set(row, col int, v any) { t.rows[row][col] = v }

// Float reads the cell at (row, col) as an Opt. Integer cells are
// widened; missing and non-numeric cells yield a missing Opt.
func (t *Table) Float(row, col int) Opt {
	switch v := t.rows[row][col].(type) {
	case float64:
		return Some(v)
	case int64:
		return Some(float64(v))
	default:
		return Opt{}
	}
}

// Rows exposes the underlying rows. The slice is shared with the table.
func (t *Table) Rows() [][]any { return t.rows }

// SetColumn replaces the column named col, or appends it when absent.
// len(values) must equal Len().
func (t *Table) SetColumn(col string, kind Kind, values []any) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("table: column %q has %d values, want %d", col, len(values), len(t.rows))
	}
	i, ok := t.index[col]
	if !ok {
		i = len(t.cols)
		t.cols = append(t.cols, col)
		t.kinds = append(t.kinds, kind)
		t.index[col] = i
		for r := range t.rows {
			t.rows[r] = append(t.rows[r], values[r])
		}
		return nil
	}
	t.kinds[i] = kind
	for r := range t.rows {
		t.rows[r][i] = values[r]
	}
	return nil
}

// Rename replaces every column name at once. The new names must be unique;
// on collision the table is left untouched and the error names both source
// columns.
func (t *Table) Rename(names []string) error {
	if len(names) != len(t.cols) {
		return fmt.Errorf("table: rename got %d names, want %d", len(names), len(t.cols))
	}
	index := make(map[string]int, len(names))
	for i, n := range names {
		if j, dup := index[n]; dup {
			return fmt.Errorf("columns %q and %q both map to %q", t.cols[j], t.cols[i], n)
		}
		index[n] = i
	}
	t.cols = append(t.cols[:0], names...)
	t.index = index
	return nil
}

// Drop removes the named columns that exist and returns the ones removed,
// in table order. Unknown names are ignored.
func (t *Table) Drop(names ...string) []string {
	kill := make(map[int]bool, len(names))
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			kill[i] = true
		}
	}
	if len(kill) == 0 {
		return nil
	}

	var dropped []string
	cols := t.cols[:0:0]
	kinds := t.kinds[:0:0]
	for i, c := range t.cols {
		if kill[i] {
			dropped = append(dropped, c)
			continue
		}
		cols = append(cols, c)
		kinds = append(kinds, t.kinds[i])
	}
	for r, row := range t.rows {
		out := make([]any, 0, len(cols))
		for i, v := range row {
			if !kill[i] {
				out = append(out, v)
			}
		}
		t.rows[r] = out
	}

	t.cols = cols
	t.kinds = kinds
	t.index = make(map[string]int, len(cols))
	for i, c := range cols {
		t.index[c] = i
	}
	return dropped
}

// Checksum fingerprints the schema and every cell in row order. Two tables
// with identical columns, kinds and values share a checksum.
func (t *Table) Checksum() uint64 {
	h := xxh3.New()
	var buf []byte

	_, _ = h.WriteString(strings.Join(t.cols, "\x1f"))
	for _, k := range t.kinds {
		buf = append(buf[:0], byte(k))
		_, _ = h.Write(buf)
	}

	for _, row := range t.rows {
		for _, v := range row {
			buf = buf[:0]
			switch x := v.(type) {
			case nil:
				buf = append(buf, 0)
			case string:
				buf = append(buf, 1)
				buf = binary.LittleEndian.AppendUint64(buf, uint64(len(x)))
				buf = append(buf, x...)
			case int64:
				buf = append(buf, 2)
				buf = binary.LittleEndian.AppendUint64(buf, uint64(x))
			case float64:
				buf = append(buf, 3)
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
			case civil.Date:
				buf = append(buf, 4)
				buf = append(buf, x.String()...)
			default:
				s := fmt.Sprint(x)
				buf = append(buf, 5)
				buf = binary.LittleEndian.AppendUint64(buf, uint64(len(s)))
				buf = append(buf, s...)
			}
			_, _ = h.Write(buf)
		}
		_, _ = h.Write([]byte{0xff})
	}
	return h.Sum64()
}
