// Package file implements a local filesystem data source. Plain files are
// opened directly; .zip archives are opened and a single member is streamed.
package file

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Local is a filesystem data source bound to one path.
type Local struct {
	path   string
	member string
}

// NewLocal returns a Local source for path. When path ends in .zip, member
// names the archive entry to read; an empty member selects the first entry
// whose name ends in .csv.
func NewLocal(path, member string) *Local { return &Local{path: path, member: member} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open returns a reader over the source bytes.
//
// If ctx is already done, Open returns ctx.Err() without touching the
// filesystem. Filesystem errors are wrapped with the path and still satisfy
// errors.Is(err, fs.ErrNotExist) for absent files and members.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !strings.HasSuffix(strings.ToLower(l.path), ".zip") {
		f, err := os.Open(l.path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", l.path, err)
		}
		return f, nil
	}

	zr, err := zip.OpenReader(l.path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", l.path, err)
	}
	entry := l.pick(zr.File)
	if entry == nil {
		_ = zr.Close()
		want := l.member
		if want == "" {
			want = "*.csv"
		}
		return nil, fmt.Errorf("zip %s: member %s: %w", l.path, want, fs.ErrNotExist)
	}
	rc, err := entry.Open()
	if err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("zip %s: open %s: %w", l.path, entry.Name, err)
	}
	return &zipMember{ReadCloser: rc, archive: zr}, nil
}

func (l *Local) pick(files []*zip.File) *zip.File {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if l.member != "" {
			if f.Name == l.member || path.Base(f.Name) == l.member {
				return f
			}
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			return f
		}
	}
	return nil
}

// zipMember closes both the entry and its archive.
type zipMember struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipMember) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}
