package ddl

import (
	"strings"
	"testing"

	"retailetl/internal/table"
)

var testDialect = Dialect{
	Name:  "test",
	Quote: QuoteANSI,
	Types: map[table.Kind]string{
		table.Text:    "TEXT",
		table.Integer: "BIGINT",
		table.Float:   "DOUBLE PRECISION",
		table.Date:    "DATE",
	},
}

// TestCreateTableSQL checks the rendered statement and the validation errors.
func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "INT"}}},
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name: "nullable and not null columns",
			def: TableDef{FQN: "public.df_orders", Columns: []ColumnDef{
				{Name: "order_id", SQLType: "BIGINT"},
				{Name: "ship_mode", SQLType: "TEXT", Nullable: true},
			}},
			wantSQL: "CREATE TABLE \"public\".\"df_orders\" (\n  \"order_id\" BIGINT NOT NULL,\n  \"ship_mode\" TEXT\n)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := testDialect.CreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tt.wantSQL)
			}
		})
	}
}

func TestQuoting(t *testing.T) {
	t.Parallel()

	cases := []struct {
		quote func(string) string
		in    string
		want  string
	}{
		{QuoteANSI, `we"ird`, `"we""ird"`},
		{QuoteBracket, `a]b`, `[a]]b]`},
		{QuoteBacktick, "a`b", "`a``b`"},
	}
	for _, c := range cases {
		if got := c.quote(c.in); got != c.want {
			t.Errorf("quote(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	d := Dialect{Quote: QuoteBracket}
	if got, want := d.QuoteFQN("dbo..df_orders"), "[dbo].[df_orders]"; got != want {
		t.Errorf("QuoteFQN = %q, want %q", got, want)
	}
	if got, want := d.DropTableSQL("df_orders"), "DROP TABLE IF EXISTS [df_orders]"; got != want {
		t.Errorf("DropTableSQL = %q, want %q", got, want)
	}
}

func TestFromTable(t *testing.T) {
	t.Parallel()

	tbl, err := table.New([]string{"order_id", "order_date", "profit", "city"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tbl.SetKind(0, table.Integer)
	tbl.SetKind(1, table.Date)
	tbl.SetKind(2, table.Float)

	def := FromTable(tbl, "df_orders", testDialect)
	want := []string{"BIGINT", "DATE", "DOUBLE PRECISION", "TEXT"}
	for i, c := range def.Columns {
		if c.SQLType != want[i] || !c.Nullable {
			t.Errorf("column %d = %+v, want nullable %s", i, c, want[i])
		}
	}
	if got := strings.Join(def.Names(), ","); got != "order_id,order_date,profit,city" {
		t.Errorf("Names = %s", got)
	}
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := testDialect.InsertSQL("df_orders", []string{"a", "b"}, 2)
	want := `INSERT INTO "df_orders" ("a", "b") VALUES (?, ?), (?, ?)`
	if got != want {
		t.Fatalf("InsertSQL = %q, want %q", got, want)
	}
}
