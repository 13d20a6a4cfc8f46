// Package ddl models the destination table and renders the statements that
// replace it. Dialect differences are limited to identifier quoting and the
// column type chosen for each table.Kind; everything else is shared.
package ddl

import (
	"fmt"
	"strings"

	"retailetl/internal/table"
)

// Dialect carries the per-backend rendering rules.
type Dialect struct {
	Name  string
	Quote func(ident string) string
	Types map[table.Kind]string
}

// TypeFor returns the column type for k, falling back to the Text type.
func (d Dialect) TypeFor(k table.Kind) string {
	if t, ok := d.Types[k]; ok {
		return t
	}
	return d.Types[table.Text]
}

// QuoteANSI quotes an identifier with double quotes (SQLite, Postgres).
func QuoteANSI(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteBracket quotes an identifier with [brackets] (SQL Server).
func QuoteBracket(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// QuoteBacktick quotes an identifier with backticks (MySQL).
func QuoteBacktick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// QuoteFQN quotes each dotted segment of name; empty segments are skipped.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// FromTable derives a TableDef for t. Every column is nullable since any
// cell may be missing.
func FromTable(t *table.Table, fqn string, d Dialect) TableDef {
	cols := t.Columns()
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, len(cols))}
	for i, c := range cols {
		def.Columns[i] = ColumnDef{Name: c, SQLType: d.TypeFor(t.Kind(i)), Nullable: true}
	}
	return def
}

// DropTableSQL renders DROP TABLE IF EXISTS for the table.
func (d Dialect) DropTableSQL(fqn string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteFQN(fqn)
}

// CreateTableSQL renders a CREATE TABLE statement:
//
//	CREATE TABLE "t" (
//	  "col1" TYPE [NOT NULL],
//	  "col2" TYPE
//	)
func (d Dialect) CreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// InsertSQL renders a multi-row INSERT with rows groups of "?" placeholders.
func (d Dialect) InsertSQL(fqn string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", d.QuoteFQN(fqn), strings.Join(quoted, ", "))
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(group)
	}
	return sb.String()
}
