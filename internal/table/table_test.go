package table

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
)

func mustNew(tb testing.TB, cols []string, rows [][]any) *Table {
	tb.Helper()
	tbl, err := New(cols, rows)
	if err != nil {
		tb.Fatalf("New: %v", err)
	}
	return tbl
}

func TestNewRejectsDuplicatesAndRaggedRows(t *testing.T) {
	t.Parallel()

	if _, err := New([]string{"a", "a"}, nil); err == nil {
		t.Fatalf("New with duplicate columns: want error")
	}
	if _, err := New([]string{"a", "b"}, [][]any{{"x"}}); err == nil {
		t.Fatalf("New with short row: want error")
	}
}

func TestSetColumnAppendsAndReplaces(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"id"}, [][]any{{int64(1)}, {int64(2)}})

	if err := tbl.SetColumn("price", Float, []any{1.5, nil}); err != nil {
		t.Fatalf("SetColumn append: %v", err)
	}
	if got, want := tbl.Columns(), []string{"id", "price"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
	i, _ := tbl.Index("price")
	if tbl.Kind(i) != Float {
		t.Fatalf("Kind(price) = %v, want float", tbl.Kind(i))
	}
	if tbl.Value(1, i) != nil {
		t.Fatalf("Value(1, price) = %v, want nil", tbl.Value(1, i))
	}

	if err := tbl.SetColumn("id", Text, []any{"a", "b"}); err != nil {
		t.Fatalf("SetColumn replace: %v", err)
	}
	if tbl.Width() != 2 || tbl.Value(0, 0) != "a" {
		t.Fatalf("replace did not happen in place: width=%d v=%v", tbl.Width(), tbl.Value(0, 0))
	}

	if err := tbl.SetColumn("short", Text, []any{"x"}); err == nil {
		t.Fatalf("SetColumn with wrong length: want error")
	}
}

func TestRenameCollisionLeavesTableUntouched(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"Region", " region"}, nil)
	err := tbl.Rename([]string{"region", "region"})
	if err == nil {
		t.Fatalf("Rename collision: want error")
	}
	if !strings.Contains(err.Error(), `"Region"`) || !strings.Contains(err.Error(), `" region"`) {
		t.Fatalf("error %q should name both source columns", err)
	}
	if got := tbl.Columns(); got[0] != "Region" {
		t.Fatalf("columns changed after failed rename: %v", got)
	}
}

func TestDrop(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"a", "b", "c"}, [][]any{{"1", "2", "3"}, {"4", "5", "6"}})
	tbl.SetKind(2, Integer)

	dropped := tbl.Drop("b", "missing")
	if !reflect.DeepEqual(dropped, []string{"b"}) {
		t.Fatalf("dropped = %v, want [b]", dropped)
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("Columns = %v", got)
	}
	if tbl.Kind(1) != Integer {
		t.Fatalf("kind of c lost after drop")
	}
	if !reflect.DeepEqual(tbl.Rows()[1], []any{"4", "6"}) {
		t.Fatalf("row 1 = %v", tbl.Rows()[1])
	}
	if i, ok := tbl.Index("c"); !ok || i != 1 {
		t.Fatalf("Index(c) = %d,%v", i, ok)
	}

	if got := tbl.Drop("nope"); got != nil {
		t.Fatalf("Drop of absent column = %v, want nil", got)
	}
}

func TestFloatWidensIntegers(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"v"}, [][]any{{int64(3)}, {2.5}, {nil}, {"x"}})
	want := []Opt{Some(3), Some(2.5), {}, {}}
	for r, w := range want {
		if got := tbl.Float(r, 0); got != w {
			t.Fatalf("Float(%d) = %+v, want %+v", r, got, w)
		}
	}
}

func TestChecksumStableAndSensitive(t *testing.T) {
	t.Parallel()

	build := func(last any) *Table {
		return mustNew(t, []string{"s", "n", "d"}, [][]any{
			{"x", int64(1), civil.Date{Year: 2023, Month: 3, Day: 1}},
			{nil, 2.5, last},
		})
	}

	a, b := build(nil), build(nil)
	if a.Checksum() != b.Checksum() {
		t.Fatalf("identical tables have different checksums")
	}
	c := build(civil.Date{Year: 2023, Month: 3, Day: 2})
	if a.Checksum() == c.Checksum() {
		t.Fatalf("different tables share a checksum")
	}
}

func TestOptArithmeticPropagatesMissing(t *testing.T) {
	t.Parallel()

	if got := Some(100).Mul(Some(20)).Scale(0.01); !got.Valid || math.Abs(got.Float64-20) > 1e-9 {
		t.Fatalf("100*20*0.01 = %+v", got)
	}
	if got := Some(1).Sub(Opt{}); got.Valid {
		t.Fatalf("Sub with missing = %+v, want missing", got)
	}
	if got := (Opt{}).Scale(2); got.Valid {
		t.Fatalf("Scale of missing = %+v", got)
	}
	if (Opt{}).Cell() != nil {
		t.Fatalf("missing Cell() should be nil")
	}
	if Some(1.5).Cell() != 1.5 {
		t.Fatalf("present Cell() = %v", Some(1.5).Cell())
	}
}
