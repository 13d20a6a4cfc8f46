// Package all enables every built-in storage backend. Import it for its side
// effects; each backend registers itself with the storage package in init.
//
//	import _ "retailetl/internal/storage/all"
//
// Kinds made available: sqlite, postgres, mssql, mysql.
package all

import (
	_ "retailetl/internal/storage/mssql"
	_ "retailetl/internal/storage/mysql"
	_ "retailetl/internal/storage/postgres"
	_ "retailetl/internal/storage/sqlite"
)
