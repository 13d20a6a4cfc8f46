package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ParseDescriptor maps a connection descriptor to a backend kind and the
// DSN its driver expects.
//
//	sqlite:///path/to/file.db  sqlite, DSN "/path/to/file.db"
//	sqlite://relative.db       sqlite, DSN "relative.db"
//	orders.db                  sqlite (bare path)
//	postgres://… postgresql://… postgres, DSN unchanged
//	sqlserver://… mssql://…     mssql, scheme rewritten to sqlserver
//	mysql://user:pw@host:3306/db mysql, converted to go-sql-driver form
//
// A "+driver" suffix on the scheme, as in postgresql+psycopg2:// or
// mysql+pymysql://, is ignored.
func ParseDescriptor(s string) (Config, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Config{}, fmt.Errorf("storage: empty connection descriptor")
	}

	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return Config{Kind: "sqlite", DSN: s}, nil
	}

	scheme, _, _ = strings.Cut(strings.ToLower(scheme), "+")
	s = scheme + "://" + rest

	switch scheme {
	case "sqlite", "sqlite3":
		// sqlite:///abs/path keeps its leading slash; sqlite://rel.db is relative.
		if rest == "" {
			return Config{}, fmt.Errorf("storage: sqlite descriptor %q has no path", s)
		}
		return Config{Kind: "sqlite", DSN: rest}, nil
	case "postgres", "postgresql":
		return Config{Kind: "postgres", DSN: s}, nil
	case "sqlserver", "mssql":
		return Config{Kind: "mssql", DSN: "sqlserver://" + rest}, nil
	case "mysql":
		dsn, err := mysqlDSN(s)
		if err != nil {
			return Config{}, err
		}
		return Config{Kind: "mysql", DSN: dsn}, nil
	default:
		return Config{}, fmt.Errorf("storage: unsupported descriptor scheme %q", scheme)
	}
}

func mysqlDSN(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("storage: mysql descriptor: %w", err)
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Hostname() + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.ParseTime = true
	if cfg.DBName == "" {
		return "", fmt.Errorf("storage: mysql descriptor %q has no database", s)
	}
	return cfg.FormatDSN(), nil
}
