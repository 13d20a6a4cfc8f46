// Package storage holds the backend-agnostic write path: the backend
// registry, connection descriptor parsing, the batched loader and Write,
// which replaces the destination table with the contents of a table.Table.
//
// Concrete backends live in subpackages and register themselves in init;
// import retailetl/internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"retailetl/internal/ddl"
)

// Config selects and configures a backend.
type Config struct {
	Kind      string // sqlite, postgres, mssql, mysql
	DSN       string // driver-native DSN, see ParseDescriptor
	Table     string
	BatchSize int
}

// Repository is an open connection to one destination database.
type Repository interface {
	// Begin starts the transaction all writes of a run go through.
	Begin(ctx context.Context) (Tx, error)
	// Dialect returns the quoting and type rules for this backend.
	Dialect() ddl.Dialect
	// Close releases the connection.
	Close()
}

// Tx is a write transaction.
type Tx interface {
	// ReplaceTable drops the table if it exists and creates it from def.
	ReplaceTable(ctx context.Context, def ddl.TableDef) error
	// CopyFrom inserts rows aligned to columns into the replaced table and
	// returns the number of rows inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Commit() error
	Rollback() error
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
