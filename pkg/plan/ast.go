// Package plan assembles SQL queries from resolved request components:
// a primary table, select columns, aggregations, normalized predicates,
// and an intent shape. The builder derives join clauses from the schema
// graph and decides when the query needs a CTE wrapper; the query types
// here serialize themselves to SQL text.
package plan

import (
	"strconv"
	"strings"
)

// Column is one SELECT-list item: a plain table.column reference or an
// aggregate over one.
type Column struct {
	Table     string
	Name      string
	Aggregate string // SUM, AVG, COUNT, MIN, MAX; empty for plain columns
	Alias     string
}

// Ref returns the column reference without aggregate or alias.
func (c Column) Ref() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// OutputName is the name the column carries in the query's result set,
// and therefore the name an outer query must use to reference it.
func (c Column) OutputName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// SQL renders the select-list item.
func (c Column) SQL() string {
	expr := c.Ref()
	if c.Aggregate != "" {
		expr = strings.ToUpper(c.Aggregate) + "(" + expr + ")"
	}
	if c.Alias != "" {
		expr += " AS " + c.Alias
	}
	return expr
}

// Join is one JOIN clause against a base table or an earlier CTE.
type Join struct {
	Table string
	Kind  string // LEFT, RIGHT, FULL; empty means inner
	On    string
}

// SQL renders the join clause.
func (j Join) SQL() string {
	if j.Kind == "" {
		return "JOIN " + j.Table + " ON " + j.On
	}
	return strings.ToUpper(j.Kind) + " JOIN " + j.Table + " ON " + j.On
}

// Filter is one WHERE or HAVING predicate. Raw carries predicates that
// could not be decomposed into column, operator, and value; it is
// emitted verbatim.
type Filter struct {
	Column   string
	Operator string
	Value    string
	Raw      string
}

// SQL renders the predicate.
func (f Filter) SQL() string {
	if f.Column == "" {
		return f.Raw
	}
	if f.Operator == "" {
		return f.Column
	}
	return f.Column + " " + f.Operator + " " + f.Value
}

// OrderBy is one ORDER BY term.
type OrderBy struct {
	Column string
	Desc   bool
}

// SQL renders the order term.
func (o OrderBy) SQL() string {
	if o.Desc {
		return o.Column + " DESC"
	}
	return o.Column
}

// CTE is a named sub-query declared in the WITH clause and usable as a
// virtual table by the outer query. A CTE body may reference base
// tables or earlier CTEs but never declares CTEs of its own.
type CTE struct {
	Name  string
	Query *Query
}

// Query is an assembled SQL query. From names a base table or a
// declared CTE.
type Query struct {
	CTEs    []CTE
	Columns []Column
	From    string
	Joins   []Join
	Filters []Filter
	GroupBy []string
	Having  []Filter
	OrderBy []OrderBy
	Limit   int
}

// UsesCTE reports whether the query declares a WITH clause.
func (q *Query) UsesCTE() bool { return len(q.CTEs) > 0 }

// AddCTE appends a CTE declaration. Names must be unique within the
// query.
func (q *Query) AddCTE(cte CTE) error {
	for _, existing := range q.CTEs {
		if strings.EqualFold(existing.Name, cte.Name) {
			return &PlanError{Name: cte.Name, Reason: "CTE name collides with an earlier CTE"}
		}
	}
	q.CTEs = append(q.CTEs, cte)
	return nil
}

// SQL serializes the query. All CTEs are listed in declaration order
// under a single WITH keyword, strictly before the outer SELECT.
func (q *Query) SQL() string {
	var b strings.Builder
	if len(q.CTEs) > 0 {
		b.WriteString("WITH ")
		for i, cte := range q.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(cte.Name)
			b.WriteString(" AS (")
			cte.Query.writeBody(&b)
			b.WriteString(")")
		}
		b.WriteByte(' ')
	}
	q.writeBody(&b)
	return b.String()
}

func (q *Query) writeBody(b *strings.Builder) {
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteByte('*')
	} else {
		for i, c := range q.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.SQL())
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(q.From)
	for _, j := range q.Joins {
		b.WriteByte(' ')
		b.WriteString(j.SQL())
	}
	writeFilters(b, "WHERE", q.Filters)
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.GroupBy, ", "))
	}
	writeFilters(b, "HAVING", q.Having)
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.SQL())
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
}

func writeFilters(b *strings.Builder, keyword string, filters []Filter) {
	if len(filters) == 0 {
		return
	}
	b.WriteByte(' ')
	b.WriteString(keyword)
	b.WriteByte(' ')
	for i, f := range filters {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(f.SQL())
	}
}
