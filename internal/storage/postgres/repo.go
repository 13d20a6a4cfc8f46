// Package postgres implements the Postgres backend on pgx v5. Each run holds
// one connection; the table is replaced and loaded with COPY inside a single
// transaction, so readers see either the previous table or the new one.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"retailetl/internal/ddl"
	"retailetl/internal/storage"
	"retailetl/internal/table"
)

// Dialect is the Postgres quoting and type map.
var Dialect = ddl.Dialect{
	Name:  "postgres",
	Quote: ddl.QuoteANSI,
	Types: map[table.Kind]string{
		table.Text:    "TEXT",
		table.Integer: "BIGINT",
		table.Float:   "DOUBLE PRECISION",
		table.Date:    "DATE",
	},
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	conn  *pgx.Conn
	table string
}

// NewRepository connects with cfg.DSN (a postgres:// URL or key=value string)
// and pings the server.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{conn: conn, table: cfg.Table}, nil
}

func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	return &pgTx{tx: tx, table: r.table}, nil
}

func (r *Repository) Dialect() ddl.Dialect { return Dialect }

func (r *Repository) Close() { _ = r.conn.Close(context.Background()) }

type pgTx struct {
	tx    pgx.Tx
	table string
}

func (t *pgTx) ReplaceTable(ctx context.Context, def ddl.TableDef) error {
	if _, err := t.tx.Exec(ctx, Dialect.DropTableSQL(def.FQN)); err != nil {
		return fmt.Errorf("postgres: drop %s: %w", def.FQN, pgErr(err))
	}
	create, err := Dialect.CreateTableSQL(def)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, create); err != nil {
		return fmt.Errorf("postgres: create %s: %w", def.FQN, pgErr(err))
	}
	return nil
}

// CopyFrom streams one batch with the COPY protocol.
func (t *pgTx) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	n, err := t.tx.CopyFrom(ctx, identifier(t.table), columns, &dateRows{rows: rows, idx: -1})
	if err != nil {
		return n, fmt.Errorf("postgres: copy: %w", pgErr(err))
	}
	return n, nil
}

func (t *pgTx) Commit() error   { return t.tx.Commit(context.Background()) }
func (t *pgTx) Rollback() error { return t.tx.Rollback(context.Background()) }

// identifier splits a dotted name into pgx.Identifier parts.
func identifier(fqn string) pgx.Identifier {
	var id pgx.Identifier
	for _, p := range strings.Split(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// dateRows is a pgx.CopyFromSource that converts civil.Date cells to
// time.Time on the way out.
type dateRows struct {
	rows [][]any
	idx  int
	buf  []any
}

func (d *dateRows) Next() bool {
	d.idx++
	return d.idx < len(d.rows)
}

func (d *dateRows) Values() ([]any, error) {
	row := d.rows[d.idx]
	d.buf = append(d.buf[:0], row...)
	for i, v := range d.buf {
		if cd, ok := v.(civil.Date); ok {
			d.buf[i] = cd.In(time.UTC)
		}
	}
	return d.buf, nil
}

func (d *dateRows) Err() error { return nil }

// pgErr surfaces the server detail and SQLSTATE when present.
func pgErr(err error) error {
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Detail != "" {
		return fmt.Errorf("%w (%s; SQLSTATE %s)", err, pe.Detail, pe.SQLState())
	}
	return err
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
