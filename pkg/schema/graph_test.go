package schema

import (
	"errors"
	"testing"
)

// fundsConfig is the canonical fixture: funds 1→N holdings N←1 securities,
// plus a disconnected audit_log table.
func fundsConfig() *Config {
	return &Config{
		Tables: map[string]TableDef{
			"funds": {
				Description: "Investment funds",
				PrimaryKey:  "id",
				Columns: []ColumnDef{
					{Name: "id", Type: "integer", PrimaryKey: true},
					{Name: "name", Type: "text"},
					{Name: "total_assets", Type: "decimal"},
				},
			},
			"holdings": {
				PrimaryKey: "id",
				Columns: []ColumnDef{
					{Name: "id", Type: "integer", PrimaryKey: true},
					{Name: "fund_id", Type: "integer"},
					{Name: "security_id", Type: "integer"},
					{Name: "quantity", Type: "decimal"},
				},
			},
			"securities": {
				PrimaryKey: "id",
				Columns: []ColumnDef{
					{Name: "id", Type: "integer", PrimaryKey: true},
					{Name: "ticker", Type: "text"},
					{Name: "asset_class", Type: "text"},
				},
			},
			"audit_log": {
				Columns: []ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "message", Type: "text"},
				},
			},
		},
		Relationships: []RelationshipDef{
			{FromTable: "funds", FromColumn: "id", ToTable: "holdings", ToColumn: "fund_id", Type: "one-to-many"},
			{FromTable: "securities", FromColumn: "id", ToTable: "holdings", ToColumn: "security_id", Type: "one-to-many"},
		},
	}
}

func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewBuilder(nil).Build(fundsConfig())
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	return g
}

func TestBuilder_Build(t *testing.T) {
	g := buildTestGraph(t)

	// 4 tables + 12 columns
	if g.NodeCount() != 16 {
		t.Errorf("expected 16 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}

	if g.Table("funds") == nil {
		t.Error("expected table node funds")
	}
	if g.Table("funds.name") != nil {
		t.Error("column node must not be returned as a table")
	}

	col := g.Column("funds", "total_assets")
	if col == nil {
		t.Fatal("expected column node funds.total_assets")
	}
	if col.Table != "funds" {
		t.Errorf("expected owning table funds, got %q", col.Table)
	}
	if col.Meta.DataType != "decimal" {
		t.Errorf("expected data type decimal, got %q", col.Meta.DataType)
	}
	if col.ColumnName() != "total_assets" {
		t.Errorf("expected bare name total_assets, got %q", col.ColumnName())
	}

	pk := g.Column("funds", "id")
	if pk == nil || !pk.Meta.PrimaryKey {
		t.Error("expected funds.id to carry the primary key flag")
	}
}

func TestBuilder_Build_Deterministic(t *testing.T) {
	a := buildTestGraph(t)
	b := buildTestGraph(t)

	at, bt := a.Tables(), b.Tables()
	if len(at) != len(bt) {
		t.Fatalf("table count mismatch: %d vs %d", len(at), len(bt))
	}
	for i := range at {
		if at[i] != bt[i] {
			t.Errorf("table order differs at %d: %q vs %q", i, at[i], bt[i])
		}
	}
}

func TestBuilder_Build_ConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty column name", func(c *Config) {
			tbl := c.Tables["funds"]
			tbl.Columns = append(tbl.Columns, ColumnDef{Name: ""})
			c.Tables["funds"] = tbl
		}},
		{"table with no columns", func(c *Config) {
			c.Tables["empty"] = TableDef{}
		}},
		{"relationship to unknown table", func(c *Config) {
			c.Relationships = append(c.Relationships,
				RelationshipDef{FromTable: "funds", ToTable: "nope"})
		}},
		{"relationship with unknown column", func(c *Config) {
			c.Relationships = append(c.Relationships,
				RelationshipDef{FromTable: "funds", FromColumn: "missing", ToTable: "holdings", ToColumn: "fund_id"})
		}},
		{"unknown relationship kind", func(c *Config) {
			c.Relationships = append(c.Relationships,
				RelationshipDef{FromTable: "funds", ToTable: "holdings", Type: "one-to-one"})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fundsConfig()
			tc.mutate(cfg)
			_, err := NewBuilder(nil).Build(cfg)
			if err == nil {
				t.Fatal("expected a configuration error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestGraph_Relationships(t *testing.T) {
	g := buildTestGraph(t)

	out, in := g.Relationships("funds")
	if len(out) != 1 || len(in) != 0 {
		t.Fatalf("expected funds to have 1 outgoing and 0 incoming, got %d/%d", len(out), len(in))
	}
	if out[0].To != "holdings" {
		t.Errorf("expected outgoing edge to holdings, got %q", out[0].To)
	}

	out, in = g.Relationships("holdings")
	if len(out) != 0 || len(in) != 2 {
		t.Errorf("expected holdings to have 0 outgoing and 2 incoming, got %d/%d", len(out), len(in))
	}
}

func TestGraph_ColumnsOf(t *testing.T) {
	g := buildTestGraph(t)

	cols := g.ColumnsOf("securities")
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	// Declaration order is preserved.
	if cols[0].ColumnName() != "id" || cols[1].ColumnName() != "ticker" {
		t.Errorf("unexpected column order: %q, %q", cols[0].ColumnName(), cols[1].ColumnName())
	}
}

func TestConfig_Fingerprint(t *testing.T) {
	a := fundsConfig().Fingerprint()
	b := fundsConfig().Fingerprint()
	if a == "" {
		t.Fatal("expected a non-empty fingerprint")
	}
	if a != b {
		t.Error("identical descriptions must produce identical fingerprints")
	}

	changed := fundsConfig()
	tbl := changed.Tables["funds"]
	tbl.Columns = append(tbl.Columns, ColumnDef{Name: "inception_date", Type: "date"})
	changed.Tables["funds"] = tbl
	if changed.Fingerprint() == a {
		t.Error("different descriptions must produce different fingerprints")
	}
}
