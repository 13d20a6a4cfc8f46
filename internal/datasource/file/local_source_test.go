package file

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(tb testing.TB, dir string, entries map[string]string, order []string) string {
	tb.Helper()
	p := filepath.Join(dir, "orders.csv.zip")
	f, err := os.Create(p)
	if err != nil {
		tb.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := io.WriteString(w, entries[name]); err != nil {
			tb.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("close: %v", err)
	}
	return p
}

func readAll(tb testing.TB, l *Local) string {
	tb.Helper()
	rc, err := l.Open(context.Background())
	if err != nil {
		tb.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		tb.Fatalf("ReadAll: %v", err)
	}
	return string(b)
}

func TestLocalOpen_PlainFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readAll(t, NewLocal(p, "")); got != "a,b\n1,2\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestLocalOpen_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewLocal(filepath.Join(t.TempDir(), "nope.csv"), "").Open(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLocalOpen_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal("whatever.csv", "").Open(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLocalOpen_Zip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeZip(t, dir, map[string]string{
		"README.txt":      "ignore me",
		"data/orders.csv": "order_id\n1\n",
		"other.csv":       "x\n2\n",
	}, []string{"README.txt", "data/orders.csv", "other.csv"})

	if got := readAll(t, NewLocal(p, "")); got != "order_id\n1\n" {
		t.Fatalf("first csv member = %q", got)
	}
	if got := readAll(t, NewLocal(p, "other.csv")); got != "x\n2\n" {
		t.Fatalf("named member = %q", got)
	}
	if got := readAll(t, NewLocal(p, "orders.csv")); got != "order_id\n1\n" {
		t.Fatalf("member by base name = %q", got)
	}

	_, err := NewLocal(p, "absent.csv").Open(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("absent member err = %v, want fs.ErrNotExist", err)
	}
}

func TestLocalOpen_CorruptZip(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(p, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewLocal(p, "").Open(context.Background()); err == nil {
		t.Fatalf("Open of corrupt zip: want error")
	}
}
