package plan

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/schema"
)

// defaultTopN bounds top-N queries that arrive without an explicit
// limit.
const defaultTopN = 10

// aggKeywordRe spots filter text that compares against an aggregated
// quantity. Underscores count as word characters, so a column named
// total_assets does not trip the total keyword.
var aggKeywordRe = regexp.MustCompile(`\b(sum|avg|average|count|min|max|total)\b`)

// Builder assembles queries against a schema graph. The graph is read
// only; a single Builder serves concurrent requests.
type Builder struct {
	graph  *schema.Graph
	logger *slog.Logger
}

// NewBuilder returns a Builder planning against g.
func NewBuilder(g *schema.Graph, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{graph: g, logger: logger}
}

// Request carries the resolved pieces of one query: canonical select
// columns, aggregations, normalized predicates, and the intent shape
// that drives the CTE decision.
type Request struct {
	PrimaryTable string
	Columns      []Column
	Intent       core.IntentType
	Aggregations []core.Aggregation
	Filters      []Filter
	GroupBy      []string
	OrderBy      []core.OrderTerm
	Limit        int
	// Tables lists extra tables the request references beyond those
	// named by columns and predicates; each is joined along the
	// shortest graph path from the primary table.
	Tables []string
}

// Build assembles the query for a request. Ranking and top-N intents
// with aggregations, and filters that compare against aggregated
// quantities, are wrapped in a single CTE so the aggregate is computed
// first and then ordered, limited, or filtered by the outer query.
// Plain list and filter requests never receive a CTE.
func (b *Builder) Build(req Request) (*Query, error) {
	if req.PrimaryTable == "" {
		return nil, &PlanError{Reason: "primary table is required"}
	}
	if b.graph.Table(req.PrimaryTable) == nil {
		return nil, &PlanError{Name: req.PrimaryTable, Reason: "table not found in schema graph"}
	}

	joins, err := b.deriveJoins(req)
	if err != nil {
		return nil, err
	}

	aggCols := buildAggregateColumns(req.Aggregations)
	inner, outer := splitFilters(req.Filters, aggCols)

	limit := req.Limit
	if req.Intent == core.IntentTopN && limit == 0 {
		limit = defaultTopN
	}

	q := &Query{
		Columns: append(append([]Column{}, req.Columns...), aggCols...),
		From:    req.PrimaryTable,
		Joins:   joins,
		Filters: inner,
		GroupBy: groupByColumns(req, aggCols),
	}

	orderBy := req.OrderBy
	if len(orderBy) == 0 && rankedIntent(req.Intent) && len(aggCols) > 0 {
		orderBy = []core.OrderTerm{{Column: aggCols[0].Alias, Desc: true}}
	}

	if !needsCTE(req, outer) {
		q.OrderBy = mapOrderBy(orderBy, aggCols)
		q.Limit = limit
		b.logger.Debug("assembled query plan",
			"table", req.PrimaryTable, "joins", len(q.Joins), "cte", false)
		return q, nil
	}

	wrapped, err := b.wrapAggregate(q, req.PrimaryTable, outer)
	if err != nil {
		return nil, err
	}
	wrapped.OrderBy = mapOrderBy(orderBy, q.Columns)
	wrapped.Limit = limit
	b.logger.Debug("assembled query plan",
		"table", req.PrimaryTable, "joins", len(q.Joins), "cte", true)
	return wrapped, nil
}

// needsCTE applies the complex-query rule: ranking or limiting over an
// aggregate, or any predicate over an aggregated quantity, requires
// computing the aggregate in a CTE first.
func needsCTE(req Request, outerFilters []Filter) bool {
	if rankedIntent(req.Intent) && len(req.Aggregations) > 0 {
		return true
	}
	return len(outerFilters) > 0
}

func rankedIntent(t core.IntentType) bool {
	return t == core.IntentRanking || t == core.IntentTopN
}

// wrapAggregate hoists the assembled query into a CTE named
// <primary>_summary and returns an outer query selecting from it.
func (b *Builder) wrapAggregate(inner *Query, primary string, outerFilters []Filter) (*Query, error) {
	name := primary + "_summary"
	if b.graph.Table(name) != nil {
		return nil, &PlanError{Name: name, Reason: "CTE name collides with an existing table"}
	}
	outerCols := make([]Column, 0, len(inner.Columns))
	for _, c := range inner.Columns {
		outerCols = append(outerCols, Column{Name: c.OutputName()})
	}
	outer := &Query{
		Columns: outerCols,
		From:    name,
		Filters: outerFilters,
	}
	if err := outer.AddCTE(CTE{Name: name, Query: inner}); err != nil {
		return nil, err
	}
	return outer, nil
}

// deriveJoins visits every secondary table the request references, in
// first-reference order, and collects one join clause per newly joined
// table along the shortest path from the primary table.
func (b *Builder) deriveJoins(req Request) ([]Join, error) {
	joined := map[string]bool{req.PrimaryTable: true}
	var joins []Join
	for _, table := range referencedTables(req) {
		if joined[table] {
			continue
		}
		if b.graph.Table(table) == nil {
			return nil, &PlanError{Name: table, Reason: "table not found in schema graph"}
		}
		path := b.graph.ShortestPath(req.PrimaryTable, table)
		if path == nil {
			return nil, &PlanError{Name: table, Reason: fmt.Sprintf("no join path from %s", req.PrimaryTable)}
		}
		for _, jc := range b.graph.JoinClauses(path) {
			if joined[jc.Table] {
				continue
			}
			joined[jc.Table] = true
			joins = append(joins, Join{Table: jc.Table, On: jc.Condition})
		}
	}
	return joins, nil
}

// referencedTables returns the secondary tables a request touches, in
// first-reference order: select columns, aggregations, predicates,
// grouping, ordering, then explicitly requested tables.
func referencedTables(req Request) []string {
	seen := map[string]bool{req.PrimaryTable: true}
	var tables []string
	add := func(table string) {
		if table == "" || seen[table] {
			return
		}
		seen[table] = true
		tables = append(tables, table)
	}
	for _, c := range req.Columns {
		add(c.Table)
	}
	for _, agg := range req.Aggregations {
		table, _ := splitQualified(agg.Column)
		add(table)
	}
	for _, f := range req.Filters {
		table, _ := splitQualified(f.Column)
		add(table)
	}
	for _, g := range req.GroupBy {
		table, _ := splitQualified(g)
		add(table)
	}
	for _, o := range req.OrderBy {
		table, _ := splitQualified(o.Column)
		add(table)
	}
	for _, t := range req.Tables {
		add(t)
	}
	return tables
}

// splitQualified separates an optional table qualifier from a column
// reference.
func splitQualified(ref string) (table, column string) {
	if t, c, ok := strings.Cut(ref, "."); ok {
		return t, c
	}
	return "", ref
}

// buildAggregateColumns converts requested aggregations into select
// columns, synthesizing an alias where none was given. An aggregation
// without a column becomes COUNT(*)-style.
func buildAggregateColumns(aggs []core.Aggregation) []Column {
	if len(aggs) == 0 {
		return nil
	}
	cols := make([]Column, 0, len(aggs))
	for _, agg := range aggs {
		table, name := splitQualified(agg.Column)
		if name == "" {
			name = "*"
		}
		fn := strings.ToUpper(agg.Function)
		alias := agg.Alias
		if alias == "" {
			alias = aggregateAlias(fn, name)
		}
		cols = append(cols, Column{Table: table, Name: name, Aggregate: fn, Alias: alias})
	}
	return cols
}

func aggregateAlias(fn, column string) string {
	if column == "*" {
		column = "all"
	}
	return strings.ToLower(fn) + "_" + column
}

// groupByColumns returns the GROUP BY list: the explicit request
// grouping when present, otherwise every non-aggregated select column.
func groupByColumns(req Request, aggCols []Column) []string {
	if len(req.GroupBy) > 0 {
		return req.GroupBy
	}
	if len(aggCols) == 0 {
		return nil
	}
	var groups []string
	for _, c := range req.Columns {
		if c.Name == "*" {
			continue
		}
		groups = append(groups, c.Ref())
	}
	return groups
}

// splitFilters separates predicates that depend on an aggregated
// quantity (outer) from plain row predicates (inner).
func splitFilters(filters []Filter, aggCols []Column) (inner, outer []Filter) {
	for _, f := range filters {
		if referencesAggregate(f, aggCols) {
			outer = append(outer, f)
		} else {
			inner = append(inner, f)
		}
	}
	return inner, outer
}

// referencesAggregate reports whether a predicate compares against an
// aggregated quantity, recognized by aggregate alias or by aggregation
// keyword.
func referencesAggregate(f Filter, aggCols []Column) bool {
	text := strings.ToLower(f.SQL())
	for _, c := range aggCols {
		if c.Alias != "" && strings.Contains(text, strings.ToLower(c.Alias)) {
			return true
		}
	}
	return aggKeywordRe.MatchString(text)
}

// mapOrderBy converts order terms, rewriting any term that names one of
// the given columns to that column's output name.
func mapOrderBy(terms []core.OrderTerm, cols []Column) []OrderBy {
	if len(terms) == 0 {
		return nil
	}
	out := make([]OrderBy, 0, len(terms))
	for _, term := range terms {
		out = append(out, OrderBy{Column: outputName(term.Column, cols), Desc: term.Desc})
	}
	return out
}

func outputName(column string, cols []Column) string {
	for _, c := range cols {
		if c.Name == "*" {
			continue
		}
		if strings.EqualFold(column, c.Alias) ||
			strings.EqualFold(column, c.Ref()) ||
			strings.EqualFold(column, c.Name) {
			return c.OutputName()
		}
	}
	return column
}
