package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypath-labs/querypath/pkg/core"
)

func TestParseAggregation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    core.Aggregation
		wantErr bool
	}{
		{
			name: "function and column",
			raw:  "sum:market_value",
			want: core.Aggregation{Function: "sum", Column: "market_value"},
		},
		{
			name: "with alias",
			raw:  "sum:market_value:total_value",
			want: core.Aggregation{Function: "sum", Column: "market_value", Alias: "total_value"},
		},
		{
			name: "uppercase function lowered",
			raw:  "COUNT:fund_id",
			want: core.Aggregation{Function: "count", Column: "fund_id"},
		},
		{
			name: "qualified column",
			raw:  "avg:holdings.quantity",
			want: core.Aggregation{Function: "avg", Column: "holdings.quantity"},
		},
		{
			name:    "missing column",
			raw:     "sum",
			wantErr: true,
		},
		{
			name:    "empty column",
			raw:     "sum:",
			wantErr: true,
		},
		{
			name:    "empty function",
			raw:     ":market_value",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAggregation(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAggregation(%q) expected error, got %+v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAggregation(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseAggregation(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseOrderTerm(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want core.OrderTerm
	}{
		{"bare column ascends", "fund_name", core.OrderTerm{Column: "fund_name"}},
		{"explicit asc", "fund_name:asc", core.OrderTerm{Column: "fund_name"}},
		{"explicit desc", "total_assets:desc", core.OrderTerm{Column: "total_assets", Desc: true}},
		{"uppercase direction", "total_assets:DESC", core.OrderTerm{Column: "total_assets", Desc: true}},
		{"whitespace trimmed", "  market_value : desc ", core.OrderTerm{Column: "market_value", Desc: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOrderTerm(tt.raw)
			if got != tt.want {
				t.Errorf("parseOrderTerm(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveIntentType(t *testing.T) {
	tests := []struct {
		name       string
		opts       PlanOptions
		aggCount   int
		orderCount int
		want       core.IntentType
		wantErr    bool
	}{
		{
			name: "explicit intent",
			opts: PlanOptions{Intent: "aggregate"},
			want: core.IntentAggregate,
		},
		{
			name: "explicit intent case insensitive",
			opts: PlanOptions{Intent: "TOP_N"},
			want: core.IntentTopN,
		},
		{
			name:    "unknown intent",
			opts:    PlanOptions{Intent: "summarize"},
			wantErr: true,
		},
		{
			name: "bare table lists",
			opts: PlanOptions{},
			want: core.IntentList,
		},
		{
			name: "filters imply filter",
			opts: PlanOptions{Filters: []string{"total_assets > 100"}},
			want: core.IntentFilter,
		},
		{
			name:     "aggregations imply aggregate",
			opts:     PlanOptions{},
			aggCount: 1,
			want:     core.IntentAggregate,
		},
		{
			name:       "ordering implies ranking",
			opts:       PlanOptions{},
			orderCount: 1,
			want:       core.IntentRanking,
		},
		{
			name:       "limit with ordering implies top_n",
			opts:       PlanOptions{Limit: 10},
			orderCount: 1,
			want:       core.IntentTopN,
		},
		{
			name:     "limit with aggregation implies top_n",
			opts:     PlanOptions{Limit: 5},
			aggCount: 1,
			want:     core.IntentTopN,
		},
		{
			name: "limit alone still lists",
			opts: PlanOptions{Limit: 10},
			want: core.IntentList,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveIntentType(&tt.opts, tt.aggCount, tt.orderCount)
			if tt.wantErr {
				if err == nil {
					t.Errorf("resolveIntentType expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveIntentType unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveIntentType = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildIntent(t *testing.T) {
	opts := &PlanOptions{
		Aggs:    []string{"sum:market_value:total_value"},
		Filters: []string{"sector = 'Technology'"},
		OrderBy: []string{"total_value:desc"},
		Limit:   10,
	}

	intent, err := buildIntent(opts)
	require.NoError(t, err)

	assert.Equal(t, core.IntentTopN, intent.Type)
	require.Len(t, intent.Aggregations, 1)
	assert.Equal(t, "sum", intent.Aggregations[0].Function)
	assert.Equal(t, "total_value", intent.Aggregations[0].Alias)
	assert.Equal(t, []string{"sector = 'Technology'"}, intent.Filters)
	require.Len(t, intent.OrderBy, 1)
	assert.True(t, intent.OrderBy[0].Desc)
	assert.Equal(t, 10, intent.Limit)
}

func TestBuildIntentBadAggregation(t *testing.T) {
	_, err := buildIntent(&PlanOptions{Aggs: []string{"sum"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid aggregation")
}

func TestBuildPlanRequest(t *testing.T) {
	opts := &PlanOptions{
		Table:    "funds",
		Join:     []string{"holdings"},
		Columns:  []string{"fund_name", "holdings.market_value"},
		GroupBy:  []string{"fund_name"},
		Validate: true,
	}

	req, err := buildPlanRequest(&cobra.Command{}, opts)
	require.NoError(t, err)

	require.Len(t, req.Entities, 1)
	assert.Equal(t, core.EntityTable, req.Entities[0].Type)
	assert.Equal(t, "funds", req.Entities[0].Table)
	assert.Equal(t, []string{"holdings"}, req.Tables)
	assert.Equal(t, []string{"fund_name", "holdings.market_value"}, req.Columns)
	assert.Equal(t, []string{"fund_name"}, req.GroupBy)
	assert.True(t, req.Validate)
	assert.Equal(t, core.IntentList, req.Intent.Type)
}

func TestBuildPlanRequestRequiresTable(t *testing.T) {
	_, err := buildPlanRequest(&cobra.Command{}, &PlanOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--table or --request")
}

func TestLoadRequestDocument(t *testing.T) {
	doc := `{
		"entities": [{"text": "funds", "type": "table", "table": "funds"}],
		"intent": {"type": "filter", "filters": ["total_assets > 100000000"]},
		"columns": ["fund_name"]
	}`

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.json")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

		opts := &PlanOptions{Request: path, Validate: true}
		req, err := buildPlanRequest(&cobra.Command{}, opts)
		require.NoError(t, err)

		require.Len(t, req.Entities, 1)
		assert.Equal(t, "funds", req.Entities[0].Table)
		assert.Equal(t, core.IntentFilter, req.Intent.Type)
		assert.True(t, req.Validate, "--validate should carry into the loaded request")
	})

	t.Run("from stdin", func(t *testing.T) {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader(doc))

		req, err := loadRequestDocument(cmd, "-")
		require.NoError(t, err)
		assert.Equal(t, []string{"fund_name"}, req.Columns)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := loadRequestDocument(&cobra.Command{}, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid request document")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadRequestDocument(&cobra.Command{}, filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read request")
	})
}
