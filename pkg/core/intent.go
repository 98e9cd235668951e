package core

// IntentType classifies the shape of the query a request asks for.
type IntentType string

// Intent type constants.
const (
	IntentList      IntentType = "list"
	IntentFilter    IntentType = "filter"
	IntentAggregate IntentType = "aggregate"
	IntentRanking   IntentType = "ranking"
	IntentTopN      IntentType = "top_n"
)

// Aggregation names a SQL aggregate applied to a column.
type Aggregation struct {
	// Function is the aggregate function name (sum, avg, count, min, max).
	Function string `json:"function"`
	// Column is the column the aggregate applies to, bare or qualified.
	Column string `json:"column"`
	// Alias names the aggregate in the output; synthesized when empty.
	Alias string `json:"alias,omitempty"`
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Intent is the parsed request shape produced by the upstream
// intent-analysis layer: what kind of query, which aggregations,
// free-text filter predicates, ordering, and a row limit.
type Intent struct {
	Type         IntentType    `json:"type"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	// Filters are free-text predicates ("total_assets > 100M"); the
	// resolver canonicalizes column references and normalizes values.
	Filters []string    `json:"filters,omitempty"`
	OrderBy []OrderTerm `json:"order_by,omitempty"`
	Limit   int         `json:"limit,omitempty"`
}
