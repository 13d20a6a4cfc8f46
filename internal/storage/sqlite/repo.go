// Package sqlite implements the SQLite backend on modernc.org/sqlite (pure
// Go, no cgo). SQLite has no bulk-load API, so rows go in as multi-row
// INSERTs inside the run's transaction; dates are stored as ISO-8601 text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	_ "modernc.org/sqlite"

	"retailetl/internal/ddl"
	"retailetl/internal/storage"
	"retailetl/internal/table"
)

// maxParams is SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
const maxParams = 32766

// Dialect is the SQLite quoting and type map.
var Dialect = ddl.Dialect{
	Name:  "sqlite",
	Quote: ddl.QuoteANSI,
	Types: map[table.Kind]string{
		table.Text:    "TEXT",
		table.Integer: "INTEGER",
		table.Float:   "REAL",
		table.Date:    "TEXT",
	},
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository opens the database file named by cfg.DSN, creating it if
// needed, and pings it to fail fast.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer; a second pooled connection would see a locked database.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, table: cfg.Table}, nil
}

func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	return &storage.SQLTx{
		Tx:        tx,
		Dialect:   Dialect,
		Table:     r.table,
		MaxParams: maxParams,
		Bind:      bindValue,
	}, nil
}

func (r *Repository) Dialect() ddl.Dialect { return Dialect }

func (r *Repository) Close() { _ = r.db.Close() }

// DB exposes the handle for read-back in tests and tooling.
func (r *Repository) DB() *sql.DB { return r.db }

func bindValue(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.String()
	}
	return v
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
