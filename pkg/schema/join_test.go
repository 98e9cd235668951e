package schema

import "testing"

func TestJoinPathSQL_FundsHoldings(t *testing.T) {
	g := buildTestGraph(t)

	p := g.ShortestPath("funds", "holdings")
	if p == nil {
		t.Fatal("expected a path from funds to holdings")
	}
	if p.Length() != 1 {
		t.Fatalf("expected length 1, got %d", p.Length())
	}

	sql := g.JoinPathSQL(p)
	if len(sql) != 1 {
		t.Fatalf("expected exactly one join clause, got %d", len(sql))
	}
	want := "JOIN holdings ON funds.id = holdings.fund_id"
	if sql[0] != want {
		t.Errorf("expected %q, got %q", want, sql[0])
	}
}

func TestJoinPathSQL_MultiHop(t *testing.T) {
	g := buildTestGraph(t)

	p := g.ShortestPath("funds", "securities")
	if p == nil {
		t.Fatal("expected a path from funds to securities")
	}
	if p.Length() != 2 {
		t.Fatalf("expected length 2 via holdings, got %d", p.Length())
	}

	sql := g.JoinPathSQL(p)
	want := []string{
		"JOIN holdings ON funds.id = holdings.fund_id",
		// The securities→holdings edge is traversed backwards; the ON
		// condition still names the declared join columns.
		"JOIN securities ON securities.id = holdings.security_id",
	}
	if len(sql) != len(want) {
		t.Fatalf("expected %d clauses, got %d: %v", len(want), len(sql), sql)
	}
	for i := range want {
		if sql[i] != want[i] {
			t.Errorf("clause %d: expected %q, got %q", i, want[i], sql[i])
		}
	}
}

func TestJoinPathSQL_FallbackConvention(t *testing.T) {
	cfg := &Config{
		Tables: map[string]TableDef{
			"clients": {Columns: []ColumnDef{{Name: "id", Type: "integer"}}},
			"accounts": {Columns: []ColumnDef{
				{Name: "id", Type: "integer"},
				{Name: "clients_id", Type: "integer"},
			}},
		},
		Relationships: []RelationshipDef{
			// No join columns declared: the id convention applies.
			{FromTable: "clients", ToTable: "accounts"},
		},
	}
	g, err := NewBuilder(nil).Build(cfg)
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	p := g.ShortestPath("clients", "accounts")
	if p == nil {
		t.Fatal("expected a path")
	}
	sql := g.JoinPathSQL(p)
	want := "JOIN accounts ON clients.id = accounts.clients_id"
	if len(sql) != 1 || sql[0] != want {
		t.Errorf("expected [%q], got %v", want, sql)
	}
}

func TestJoinPathSQL_EmptyPath(t *testing.T) {
	g := buildTestGraph(t)

	if sql := g.JoinPathSQL(&Path{Nodes: []string{"funds"}}); len(sql) != 0 {
		t.Errorf("expected no clauses for a zero-length path, got %v", sql)
	}
	if sql := g.JoinPathSQL(nil); len(sql) != 0 {
		t.Errorf("expected no clauses for a nil path, got %v", sql)
	}
}
