package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/plan"
	"github.com/querypath-labs/querypath/pkg/schema"
)

func validatorGraph(t *testing.T) *schema.Graph {
	t.Helper()
	cfg := &schema.Config{
		Tables: map[string]schema.TableDef{
			"funds": {
				PrimaryKey: "id",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text"},
					{Name: "total_assets", Type: "numeric"},
				},
			},
			"holdings": {
				PrimaryKey: "id",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "fund_id", Type: "integer"},
					{Name: "market_value", Type: "double precision"},
				},
			},
			"t": {
				Columns: []schema.ColumnDef{
					{Name: "id", Type: "integer"},
					{Name: "text_col", Type: "text"},
					{Name: "num_col", Type: "numeric"},
					{Name: "untyped_col"},
				},
			},
		},
		Relationships: []schema.RelationshipDef{
			{FromTable: "funds", FromColumn: "id", ToTable: "holdings", ToColumn: "fund_id", Type: "one-to-many"},
		},
	}
	g, err := schema.NewBuilder(nil).Build(cfg)
	require.NoError(t, err)
	return g
}

func TestValidateSQL_MissingColumn(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT t.missing_col FROM t")

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "missing_col")
	assert.Empty(t, res.Warnings)
}

func TestValidateSQL_NonNumericAggregateIsWarning(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT SUM(t.text_col) FROM t")

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "text_col")
	assert.Contains(t, res.Warnings[0], "SUM")
}

func TestValidateSQL_NumericAggregateIsClean(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT AVG(t.num_col) FROM t")

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
}

func TestValidateSQL_UntypedColumnNotJudged(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT SUM(t.untyped_col) FROM t")

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
}

func TestValidateSQL_CountAcceptsAnyType(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT COUNT(t.text_col) FROM t")

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
}

func TestValidateSQL_UnknownTable(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT * FROM positions")

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "positions")
}

func TestValidateSQL_SuggestsCloseTableName(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT * FROM fund")

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "did you mean funds?")
}

func TestValidateSQL_SuggestsCloseColumnName(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT funds.total_asset FROM funds")

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "total_asset")
	assert.Contains(t, res.Errors[0], "did you mean total_assets?")
}

func TestValidateSQL_CaseOnlyMismatchCorrected(t *testing.T) {
	v := New(validatorGraph(t), nil)

	res := v.ValidateSQL("SELECT Funds.Total_Assets FROM Funds")

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "SELECT funds.total_assets FROM funds", res.CorrectedSQL)
	require.Len(t, res.CorrectionsApplied, 2)
	assert.Contains(t, res.CorrectionsApplied[0], "Funds")
	assert.Contains(t, res.CorrectionsApplied[1], "Total_Assets")
}

func TestValidateSQL_CTENamesAreVirtualTables(t *testing.T) {
	v := New(validatorGraph(t), nil)

	sql := "WITH funds_summary AS (SELECT funds.name, SUM(funds.total_assets) AS sum_total_assets " +
		"FROM funds GROUP BY funds.name) " +
		"SELECT name, sum_total_assets FROM funds_summary ORDER BY sum_total_assets DESC LIMIT 10"
	res := v.ValidateSQL(sql)

	assert.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
}

func TestValidate_PlanDriven(t *testing.T) {
	g := validatorGraph(t)
	v := New(g, nil)

	q := &plan.Query{
		Columns: []plan.Column{
			{Table: "funds", Name: "name"},
			{Table: "holdings", Name: "market_value", Aggregate: "SUM", Alias: "sum_market_value"},
		},
		From:    "funds",
		Joins:   []plan.Join{{Table: "holdings", On: "funds.id = holdings.fund_id"}},
		GroupBy: []string{"funds.name"},
	}

	res := v.Validate(q.SQL(), q, nil)
	assert.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidate_PlanDrivenBadColumn(t *testing.T) {
	v := New(validatorGraph(t), nil)

	q := &plan.Query{
		Columns: []plan.Column{{Table: "funds", Name: "nav"}},
		From:    "funds",
	}

	res := v.Validate(q.SQL(), q, nil)
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "nav")
	assert.Contains(t, res.Errors[0], "funds")
}

func TestValidate_PlanDrivenSkipsCTENames(t *testing.T) {
	v := New(validatorGraph(t), nil)

	inner := &plan.Query{
		Columns: []plan.Column{
			{Table: "funds", Name: "name"},
			{Table: "funds", Name: "total_assets", Aggregate: "SUM", Alias: "sum_total_assets"},
		},
		From:    "funds",
		GroupBy: []string{"funds.name"},
	}
	q := &plan.Query{
		Columns: []plan.Column{{Name: "name"}, {Name: "sum_total_assets"}},
		From:    "funds_summary",
		OrderBy: []plan.OrderBy{{Column: "sum_total_assets", Desc: true}},
	}
	require.NoError(t, q.AddCTE(plan.CTE{Name: "funds_summary", Query: inner}))

	res := v.Validate(q.SQL(), q, nil)
	assert.True(t, res.IsValid, "errors: %v", res.Errors)
}

func TestValidate_NeverMutatesPlan(t *testing.T) {
	v := New(validatorGraph(t), nil)

	q := &plan.Query{
		Columns: []plan.Column{{Table: "funds", Name: "Total_Assets"}},
		From:    "funds",
	}
	before := q.SQL()

	res := v.Validate(before, q, nil)
	require.Len(t, res.CorrectionsApplied, 1)
	assert.Equal(t, before, q.SQL(), "validation must not modify the plan")
	assert.Equal(t, "SELECT funds.total_assets FROM funds", res.CorrectedSQL)
}

func TestValidate_EntityBreaksAmbiguousCase(t *testing.T) {
	cfg := &schema.Config{
		Tables: map[string]schema.TableDef{
			"sales": {Columns: []schema.ColumnDef{{Name: "id", Type: "integer"}}},
			"Sales": {Columns: []schema.ColumnDef{{Name: "id", Type: "integer"}}},
		},
	}
	g, err := schema.NewBuilder(nil).Build(cfg)
	require.NoError(t, err)
	v := New(g, nil)

	res := v.ValidateSQL("SELECT * FROM SALES")
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "multiple")

	entities := []core.Entity{{Text: "sales", Type: core.EntityTable, Table: "sales"}}
	res = v.Validate("SELECT * FROM SALES", nil, entities)
	assert.True(t, res.IsValid)
	assert.Equal(t, "SELECT * FROM sales", res.CorrectedSQL)
}

func TestNumericType(t *testing.T) {
	for _, typ := range []string{"integer", "bigint", "numeric(18,2)", "double precision", "float8", "real", "money"} {
		assert.True(t, numericType(typ), typ)
	}
	for _, typ := range []string{"text", "varchar(64)", "boolean", "date", "timestamp"} {
		assert.False(t, numericType(typ), typ)
	}
}
