package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypath-labs/querypath/pkg/schema"
)

// fundGraph builds a three-table graph plus one island table with no
// relationships.
func fundGraph(t *testing.T) *schema.Graph {
	t.Helper()

	cfg := &schema.Config{
		Tables: map[string]schema.TableDef{
			"funds": {
				PrimaryKey: "fund_id",
				Columns: []schema.ColumnDef{
					{Name: "fund_id", Type: "integer", PrimaryKey: true},
					{Name: "fund_name", Type: "text"},
				},
			},
			"holdings": {
				PrimaryKey: "holding_id",
				Columns: []schema.ColumnDef{
					{Name: "holding_id", Type: "integer", PrimaryKey: true},
					{Name: "fund_id", Type: "integer"},
					{Name: "security_id", Type: "integer"},
				},
			},
			"securities": {
				PrimaryKey: "security_id",
				Columns: []schema.ColumnDef{
					{Name: "security_id", Type: "integer", PrimaryKey: true},
					{Name: "ticker", Type: "text"},
				},
			},
			"audit_log": {
				Columns: []schema.ColumnDef{
					{Name: "entry_id", Type: "integer", PrimaryKey: true},
				},
			},
		},
		Relationships: []schema.RelationshipDef{
			{FromTable: "funds", FromColumn: "fund_id", ToTable: "holdings", ToColumn: "fund_id", Type: "one-to-many"},
			{FromTable: "securities", FromColumn: "security_id", ToTable: "holdings", ToColumn: "security_id", Type: "one-to-many"},
		},
	}

	g, err := schema.NewBuilder(nil).Build(cfg)
	require.NoError(t, err)
	return g
}

func TestCollectPathsShortest(t *testing.T) {
	g := fundGraph(t)

	out, err := collectPaths(g, "funds", "securities", false, 4)
	require.NoError(t, err)

	assert.Equal(t, "funds", out.From)
	assert.Equal(t, "securities", out.To)
	require.Len(t, out.Paths, 1)

	p := out.Paths[0]
	assert.Equal(t, []string{"funds", "holdings", "securities"}, p.Tables)
	assert.Equal(t, 2, p.Length)
	require.Len(t, p.Joins, 2)
	assert.Equal(t, "JOIN holdings ON funds.fund_id = holdings.fund_id", p.Joins[0])
	assert.Equal(t, "JOIN securities ON securities.security_id = holdings.security_id", p.Joins[1])
}

func TestCollectPathsDirect(t *testing.T) {
	g := fundGraph(t)

	out, err := collectPaths(g, "funds", "holdings", false, 4)
	require.NoError(t, err)
	require.Len(t, out.Paths, 1)
	assert.Equal(t, 1, out.Paths[0].Length)
}

func TestCollectPathsAll(t *testing.T) {
	g := fundGraph(t)

	out, err := collectPaths(g, "funds", "securities", true, 4)
	require.NoError(t, err)
	require.NotEmpty(t, out.Paths)

	// Shortest first
	assert.Equal(t, 2, out.Paths[0].Length)
}

func TestCollectPathsUnknownTable(t *testing.T) {
	g := fundGraph(t)

	_, err := collectPaths(g, "funds", "positions", false, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "positions" not found`)
}

func TestCollectPathsNoRoute(t *testing.T) {
	g := fundGraph(t)

	_, err := collectPaths(g, "funds", "audit_log", false, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no join path")
}

func TestHopCount(t *testing.T) {
	assert.Equal(t, "(1 hop)", hopCount(1))
	assert.Equal(t, "(2 hops)", hopCount(2))
	assert.Equal(t, "(5 hops)", hopCount(5))
}
