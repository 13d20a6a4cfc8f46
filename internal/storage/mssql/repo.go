// Package mssql implements the SQL Server backend on go-mssqldb. Rows are
// loaded with the TDS bulk copy API, which avoids the 2100-parameter cap on
// ordinary statements.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"retailetl/internal/ddl"
	"retailetl/internal/storage"
	"retailetl/internal/table"
)

// Dialect is the SQL Server quoting and type map.
var Dialect = ddl.Dialect{
	Name:  "mssql",
	Quote: ddl.QuoteBracket,
	Types: map[table.Kind]string{
		table.Text:    "NVARCHAR(MAX)",
		table.Integer: "BIGINT",
		table.Float:   "FLOAT",
		table.Date:    "DATE",
	},
}

// Repository is a SQL Server-backed storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository validates and opens cfg.DSN (sqlserver://…) and pings it.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	// Bulk copy and DDL must share the transaction's connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, table: cfg.Table}, nil
}

func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mssql: begin tx: %w", err)
	}
	return &bulkTx{SQLTx: storage.SQLTx{Tx: tx, Dialect: Dialect, Table: r.table, Bind: bindValue}}, nil
}

func (r *Repository) Dialect() ddl.Dialect { return Dialect }

func (r *Repository) Close() { _ = r.db.Close() }

// bulkTx reuses SQLTx for DDL and commit and swaps in bulk copy for rows.
type bulkTx struct {
	storage.SQLTx
}

func (t *bulkTx) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := t.Tx.PrepareContext(ctx, mssql.CopyIn(Dialect.QuoteFQN(t.Table), mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i, row := range rows {
		args := make([]any, len(row))
		for j, v := range row {
			args[j] = bindValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	return n, nil
}

func bindValue(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.In(time.UTC)
	}
	return v
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
