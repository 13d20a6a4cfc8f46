package csv

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"retailetl/internal/etlerr"
	"retailetl/internal/table"
)

func mustRead(tb testing.TB, in string, opt Options) *table.Table {
	tb.Helper()
	tbl, err := Read(context.Background(), strings.NewReader(in), opt)
	if err != nil {
		tb.Fatalf("Read: %v", err)
	}
	return tbl
}

func TestReadMissingTokens(t *testing.T) {
	t.Parallel()

	in := "Order Id,Ship Mode,City\n" +
		"1,Not Available,Henderson\n" +
		"2,unknown,\n" +
		"3,N/A,NA\n" +
		"4,null,none\n" +
		"5,Unknown,NONE\n"
	tbl := mustRead(t, in, Options{})

	if got, want := tbl.Columns(), []string{"Order Id", "Ship Mode", "City"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
	want := [][]any{
		{int64(1), nil, "Henderson"},
		{int64(2), nil, nil},
		{int64(3), nil, nil},
		{int64(4), nil, nil},
		// Matching is case-sensitive.
		{int64(5), "Unknown", "NONE"},
	}
	if !reflect.DeepEqual(tbl.Rows(), want) {
		t.Fatalf("Rows = %#v\nwant %#v", tbl.Rows(), want)
	}
}

func TestReadCustomTokensAndComma(t *testing.T) {
	t.Parallel()

	tbl := mustRead(t, "a;b\n-;x\n", Options{Comma: ';', MissingTokens: []string{"-"}})
	if tbl.Value(0, 0) != nil || tbl.Value(0, 1) != "x" {
		t.Fatalf("row = %v", tbl.Rows()[0])
	}

	// An empty, non-nil token list disables matching entirely.
	tbl = mustRead(t, "a,b\nNA,\n", Options{MissingTokens: []string{}})
	if tbl.Value(0, 0) != "NA" || tbl.Value(0, 1) != "" {
		t.Fatalf("row = %#v", tbl.Rows()[0])
	}
}

func TestReadInfersKinds(t *testing.T) {
	t.Parallel()

	in := "id,price,label,empty,mixed\n" +
		"1,260,a,,1\n" +
		"2,15.5,b,NA,x\n" +
		"3,,c,,2\n"
	tbl := mustRead(t, in, Options{})

	wantKinds := []table.Kind{table.Integer, table.Float, table.Text, table.Text, table.Text}
	for i, k := range wantKinds {
		if tbl.Kind(i) != k {
			t.Fatalf("Kind(%s) = %v, want %v", tbl.Columns()[i], tbl.Kind(i), k)
		}
	}
	if tbl.Value(0, 1) != 260.0 || tbl.Value(2, 1) != nil {
		t.Fatalf("price cells = %v, %v", tbl.Value(0, 1), tbl.Value(2, 1))
	}
	if tbl.Value(0, 4) != "1" {
		t.Fatalf("mixed column should stay text, got %#v", tbl.Value(0, 4))
	}
}

func TestReadKeepText(t *testing.T) {
	t.Parallel()

	tbl := mustRead(t, "id\n1\n", Options{KeepText: true})
	if tbl.Kind(0) != table.Text || tbl.Value(0, 0) != "1" {
		t.Fatalf("KeepText ignored: %v %#v", tbl.Kind(0), tbl.Value(0, 0))
	}
}

func TestReadStripsBOM(t *testing.T) {
	t.Parallel()

	tbl := mustRead(t, "\uFEFFOrder Id,x\n1,2\n", Options{})
	if got := tbl.Columns()[0]; got != "Order Id" {
		t.Fatalf("first header = %q", got)
	}
}

func TestReadFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"ragged row", "a,b\n1,2\n3\n"},
		{"wide row", "a,b\n1,2,3\n"},
		{"bad quote", "a,b\n\"1,2\n"},
		{"duplicate header", "a,a\n1,2\n"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(context.Background(), strings.NewReader(tc.in), Options{Name: "orders.csv"})
			var ie *etlerr.IngestionError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want *etlerr.IngestionError", err)
			}
			if ie.Path != "orders.csv" {
				t.Fatalf("Path = %q", ie.Path)
			}
		})
	}
}

func TestReadDecodesEncoding(t *testing.T) {
	t.Parallel()

	// "Région" and "São Paulo" in ISO-8859-1.
	in := "Order Id,R\xe9gion\n1,S\xe3o Paulo\n"
	for _, enc := range []string{"latin1", "windows-1252"} {
		tbl := mustRead(t, in, Options{Encoding: enc})
		if got, want := tbl.Columns(), []string{"Order Id", "Région"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: Columns = %v, want %v", enc, got, want)
		}
		if got := tbl.Value(0, 1); got != "São Paulo" {
			t.Fatalf("%s: cell = %v", enc, got)
		}
	}

	// UTF-16 little endian with a byte order mark.
	utf16 := []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0, '\n', 0, '1', 0, ',', 0, 'x', 0, '\n', 0}
	tbl := mustRead(t, string(utf16), Options{Encoding: "utf-16"})
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("utf-16: Columns = %v", got)
	}

	_, err := Read(context.Background(), strings.NewReader(in), Options{Encoding: "ebcdic"})
	var ie *etlerr.IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IngestionError", err)
	}
}
