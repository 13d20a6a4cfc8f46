// Package mysql implements the MySQL backend on go-sql-driver/mysql with
// multi-row INSERTs.
//
// MySQL commits DDL implicitly, so DROP and CREATE take effect before the
// inserts run; a failed load leaves an empty or partial table rather than the
// previous one.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-sql-driver/mysql"

	"retailetl/internal/ddl"
	"retailetl/internal/storage"
	"retailetl/internal/table"
)

// maxParams is the prepared-statement placeholder limit.
const maxParams = 65535

// Dialect is the MySQL quoting and type map.
var Dialect = ddl.Dialect{
	Name:  "mysql",
	Quote: ddl.QuoteBacktick,
	Types: map[table.Kind]string{
		table.Text:    "TEXT",
		table.Integer: "BIGINT",
		table.Float:   "DOUBLE",
		table.Date:    "DATE",
	},
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository opens cfg.DSN, which must be in go-sql-driver form
// (user:pass@tcp(host:3306)/db); ParseDescriptor produces it from a URL.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, table: cfg.Table}, nil
}

func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", err)
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

func bindValue(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.In(time.UTC)
	}
	return v
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
