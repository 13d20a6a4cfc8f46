package storage

import (
	"context"
	"database/sql"
	"fmt"

	"retailetl/internal/ddl"
)

// SQLTx implements Tx over database/sql with multi-row INSERT statements.
// Backends with a dedicated bulk path embed it and override CopyFrom.
type SQLTx struct {
	Tx      *sql.Tx
	Dialect ddl.Dialect
	Table   string

	// MaxParams caps placeholders per statement; 0 means unlimited.
	MaxParams int

	// Bind converts a cell before it is sent to the driver; nil passes
	// cells through unchanged.
	Bind func(any) any
}

// ReplaceTable drops and recreates the table inside the transaction.
func (t *SQLTx) ReplaceTable(ctx context.Context, def ddl.TableDef) error {
	if _, err := t.Tx.ExecContext(ctx, t.Dialect.DropTableSQL(def.FQN)); err != nil {
		return fmt.Errorf("%s: drop %s: %w", t.Dialect.Name, def.FQN, err)
	}
	create, err := t.Dialect.CreateTableSQL(def)
	if err != nil {
		return err
	}
	if _, err := t.Tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%s: create %s: %w", t.Dialect.Name, def.FQN, err)
	}
	return nil
}

// CopyFrom inserts rows with as few statements as MaxParams allows.
func (t *SQLTx) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", t.Dialect.Name)
	}

	var inserted int64
	for _, chunk := range ChunkByParams(rows, len(columns), t.MaxParams) {
		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			if len(row) != len(columns) {
				return inserted, fmt.Errorf("%s: CopyFrom: row length %d != columns length %d", t.Dialect.Name, len(row), len(columns))
			}
			for _, v := range row {
				args = append(args, t.bind(v))
			}
		}
		res, err := t.Tx.ExecContext(ctx, t.Dialect.InsertSQL(t.Table, columns, len(chunk)), args...)
		if err != nil {
			return inserted, fmt.Errorf("%s: insert: %w", t.Dialect.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(chunk))
		}
		inserted += n
	}
	return inserted, nil
}

func (t *SQLTx) Commit() error   { return t.Tx.Commit() }
func (t *SQLTx) Rollback() error { return t.Tx.Rollback() }

func (t *SQLTx) bind(v any) any {
	if t.Bind == nil || v == nil {
		return v
	}
	return t.Bind(v)
}
