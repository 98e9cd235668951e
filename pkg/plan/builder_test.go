package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/schema"
)

func plannerGraph(t *testing.T) *schema.Graph {
	t.Helper()
	cfg := &schema.Config{
		Tables: map[string]schema.TableDef{
			"clients": {
				PrimaryKey: "id",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "client_type", Type: "text"},
					{Name: "region", Type: "text"},
				},
			},
			"funds": {
				PrimaryKey: "id",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text"},
					{Name: "total_assets", Type: "numeric"},
					{Name: "client_id", Type: "integer"},
				},
			},
			"holdings": {
				PrimaryKey: "id",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "fund_id", Type: "integer"},
					{Name: "market_value", Type: "numeric"},
				},
			},
			"audit_log": {
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "event", Type: "text"},
				},
			},
		},
		Relationships: []schema.RelationshipDef{
			{FromTable: "clients", FromColumn: "id", ToTable: "funds", ToColumn: "client_id", Type: "one-to-many"},
			{FromTable: "funds", FromColumn: "id", ToTable: "holdings", ToColumn: "fund_id", Type: "one-to-many"},
		},
	}
	g, err := schema.NewBuilder(nil).Build(cfg)
	require.NoError(t, err)
	return g
}

func TestBuild_ListNeverUsesCTE(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "funds",
		Columns: []Column{
			{Table: "funds", Name: "name"},
			{Table: "funds", Name: "total_assets"},
		},
		Intent: core.IntentList,
	})
	require.NoError(t, err)

	sql := q.SQL()
	assert.Equal(t, "SELECT funds.name, funds.total_assets FROM funds", sql)
	assert.NotContains(t, sql, "WITH")
	assert.False(t, q.UsesCTE())
}

func TestBuild_DerivesJoinsFromGraph(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "clients",
		Columns: []Column{
			{Table: "clients", Name: "region"},
			{Table: "holdings", Name: "market_value"},
		},
		Intent: core.IntentList,
	})
	require.NoError(t, err)

	want := "SELECT clients.region, holdings.market_value FROM clients " +
		"JOIN funds ON clients.id = funds.client_id " +
		"JOIN holdings ON funds.id = holdings.fund_id"
	assert.Equal(t, want, q.SQL())
}

func TestBuild_SharedJoinPathNotDuplicated(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "clients",
		Columns: []Column{
			{Table: "funds", Name: "name"},
			{Table: "holdings", Name: "market_value"},
		},
		Intent: core.IntentList,
	})
	require.NoError(t, err)

	sql := q.SQL()
	assert.Equal(t, 1, strings.Count(sql, "JOIN funds"), sql)
	assert.Equal(t, 1, strings.Count(sql, "JOIN holdings"), sql)
}

func TestBuild_TopNAggregateWrapsInCTE(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "clients",
		Columns:      []Column{{Table: "clients", Name: "region"}},
		Intent:       core.IntentTopN,
		Aggregations: []core.Aggregation{{Function: "sum", Column: "funds.total_assets"}},
	})
	require.NoError(t, err)
	require.True(t, q.UsesCTE())

	sql := q.SQL()
	want := "WITH clients_summary AS (" +
		"SELECT clients.region, SUM(funds.total_assets) AS sum_total_assets " +
		"FROM clients JOIN funds ON clients.id = funds.client_id " +
		"GROUP BY clients.region) " +
		"SELECT region, sum_total_assets FROM clients_summary " +
		"ORDER BY sum_total_assets DESC LIMIT 10"
	assert.Equal(t, want, sql)
	assert.Equal(t, 1, strings.Count(sql, "WITH"), "exactly one WITH clause")
	assert.Contains(t, sql, "LIMIT")
}

func TestBuild_ExplicitLimitAndOrderSurviveWrapping(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "clients",
		Columns:      []Column{{Table: "clients", Name: "region"}},
		Intent:       core.IntentRanking,
		Aggregations: []core.Aggregation{{Function: "avg", Column: "funds.total_assets"}},
		OrderBy:      []core.OrderTerm{{Column: "clients.region"}},
		Limit:        3,
	})
	require.NoError(t, err)

	sql := q.SQL()
	assert.Contains(t, sql, "ORDER BY region")
	assert.NotContains(t, sql, "ORDER BY clients.region")
	assert.Contains(t, sql, "LIMIT 3")
}

func TestBuild_AggregateFilterRoutedToOuterQuery(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "clients",
		Columns:      []Column{{Table: "clients", Name: "region"}},
		Intent:       core.IntentFilter,
		Aggregations: []core.Aggregation{{Function: "sum", Column: "funds.total_assets"}},
		Filters: []Filter{
			{Column: "clients.client_type", Operator: "=", Value: "'institutional'"},
			{Column: "sum_total_assets", Operator: ">", Value: "1000000"},
		},
	})
	require.NoError(t, err)
	require.True(t, q.UsesCTE())

	sql := q.SQL()
	want := "WITH clients_summary AS (" +
		"SELECT clients.region, SUM(funds.total_assets) AS sum_total_assets " +
		"FROM clients JOIN funds ON clients.id = funds.client_id " +
		"WHERE clients.client_type = 'institutional' " +
		"GROUP BY clients.region) " +
		"SELECT region, sum_total_assets FROM clients_summary " +
		"WHERE sum_total_assets > 1000000"
	assert.Equal(t, want, sql)
}

func TestBuild_KeywordFilterForcesCTE(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "funds",
		Intent:       core.IntentFilter,
		Filters:      []Filter{{Raw: "total value > 1000000"}},
	})
	require.NoError(t, err)
	assert.True(t, q.UsesCTE())
	assert.Contains(t, q.SQL(), "funds_summary")
}

func TestBuild_PlainColumnFilterStaysInline(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	// total_assets contains the keyword total but names a real column;
	// the word boundary check must not route it to an outer query.
	q, err := b.Build(Request{
		PrimaryTable: "funds",
		Columns:      []Column{{Table: "funds", Name: "name"}},
		Intent:       core.IntentFilter,
		Filters:      []Filter{{Column: "funds.total_assets", Operator: ">", Value: "100000000"}},
	})
	require.NoError(t, err)
	assert.False(t, q.UsesCTE())
	assert.Equal(t, "SELECT funds.name FROM funds WHERE funds.total_assets > 100000000", q.SQL())
}

func TestBuild_AggregateIntentGroupsWithoutCTE(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "clients",
		Columns:      []Column{{Table: "clients", Name: "region"}},
		Intent:       core.IntentAggregate,
		Aggregations: []core.Aggregation{{Function: "avg", Column: "funds.total_assets"}},
	})
	require.NoError(t, err)
	assert.False(t, q.UsesCTE())

	want := "SELECT clients.region, AVG(funds.total_assets) AS avg_total_assets " +
		"FROM clients JOIN funds ON clients.id = funds.client_id " +
		"GROUP BY clients.region"
	assert.Equal(t, want, q.SQL())
}

func TestBuild_CountWithoutColumn(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	q, err := b.Build(Request{
		PrimaryTable: "funds",
		Intent:       core.IntentAggregate,
		Aggregations: []core.Aggregation{{Function: "count"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS count_all FROM funds", q.SQL())
}

func TestBuild_Errors(t *testing.T) {
	b := NewBuilder(plannerGraph(t), nil)

	tests := []struct {
		name     string
		req      Request
		wantName string
	}{
		{
			name: "missing primary table",
			req:  Request{Intent: core.IntentList},
		},
		{
			name:     "unknown primary table",
			req:      Request{PrimaryTable: "positions", Intent: core.IntentList},
			wantName: "positions",
		},
		{
			name: "unknown secondary table",
			req: Request{
				PrimaryTable: "funds",
				Columns:      []Column{{Table: "positions", Name: "qty"}},
				Intent:       core.IntentList,
			},
			wantName: "positions",
		},
		{
			name: "unreachable secondary table",
			req: Request{
				PrimaryTable: "funds",
				Columns:      []Column{{Table: "audit_log", Name: "event"}},
				Intent:       core.IntentList,
			},
			wantName: "audit_log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.req)
			require.Error(t, err)

			var planErr *PlanError
			require.ErrorAs(t, err, &planErr)
			assert.Equal(t, tt.wantName, planErr.Name)
		})
	}
}

func TestBuild_CTENameCollisionWithTable(t *testing.T) {
	cfg := &schema.Config{
		Tables: map[string]schema.TableDef{
			"funds": {
				PrimaryKey: "id",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "total_assets", Type: "numeric"},
				},
			},
			"funds_summary": {
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
				},
			},
		},
	}
	g, err := schema.NewBuilder(nil).Build(cfg)
	require.NoError(t, err)

	b := NewBuilder(g, nil)
	_, err = b.Build(Request{
		PrimaryTable: "funds",
		Intent:       core.IntentTopN,
		Aggregations: []core.Aggregation{{Function: "sum", Column: "funds.total_assets"}},
	})
	require.Error(t, err)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, "funds_summary", planErr.Name)
	assert.Contains(t, planErr.Reason, "collides")
}
