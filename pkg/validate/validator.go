// Package validate checks generated SQL and query plans against the
// schema graph: unknown tables and columns are errors, aggregation over
// non-numeric columns is a warning, and case-only mismatches are
// auto-corrected when unambiguous. Validation never mutates the plan it
// is given; corrections are returned as a separate SQL string for the
// caller to adopt or ignore.
package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/plan"
	"github.com/querypath-labs/querypath/pkg/schema"
)

// Result is the outcome of validating one query.
type Result struct {
	IsValid            bool     `json:"is_valid"`
	Errors             []string `json:"errors,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	CorrectedSQL       string   `json:"corrected_sql,omitempty"`
	CorrectionsApplied []string `json:"corrections_applied,omitempty"`
}

// Validator checks queries against a schema graph.
type Validator struct {
	graph  *schema.Graph
	logger *slog.Logger
}

// New returns a Validator checking against g.
func New(g *schema.Graph, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{graph: g, logger: logger}
}

// reference is one table or column mention found in a query. A table
// reference has an empty column.
type reference struct {
	table  string
	column string
	agg    string // aggregate applied to the column, if any
}

// Validate checks sqlText against the schema graph. When q is non-nil
// its structure drives the checks; otherwise references are scanned
// from the SQL text. CTE names act as virtual tables and are skipped.
// entities, when given, break ties between case-correction candidates.
func (v *Validator) Validate(sqlText string, q *plan.Query, entities []core.Entity) *Result {
	res := &Result{IsValid: true}

	var tables, columns []reference
	if q != nil {
		tables, columns = planReferences(q)
	} else {
		tables, columns = v.scanReferences(sqlText)
	}

	corrected := sqlText
	canonical := make(map[string]string)

	for _, ref := range tables {
		if v.graph.Table(ref.table) != nil {
			canonical[strings.ToLower(ref.table)] = ref.table
			continue
		}
		fix, ambiguous := v.tableCaseFix(ref.table, entities)
		switch {
		case fix != "":
			canonical[strings.ToLower(ref.table)] = fix
			corrected = replaceWord(corrected, ref.table, fix)
			res.CorrectionsApplied = append(res.CorrectionsApplied,
				fmt.Sprintf("table %s corrected to %s", ref.table, fix))
		case ambiguous:
			res.Errors = append(res.Errors,
				fmt.Sprintf("table %s matches multiple schema tables and cannot be corrected", ref.table))
		default:
			msg := fmt.Sprintf("table %s not found in schema", ref.table)
			if s := closest(ref.table, v.graph.Tables()); s != "" {
				msg += fmt.Sprintf(" (did you mean %s?)", s)
			}
			res.Errors = append(res.Errors, msg)
		}
	}

	for _, ref := range columns {
		table, ok := canonical[strings.ToLower(ref.table)]
		if !ok {
			// The owning table is already reported; a column check
			// would only cascade the same failure.
			continue
		}
		name := ref.column
		if v.graph.Column(table, name) == nil {
			fix, ambiguous := v.columnCaseFix(table, name, entities)
			switch {
			case fix != "":
				corrected = replaceQualified(corrected, table, name, fix)
				res.CorrectionsApplied = append(res.CorrectionsApplied,
					fmt.Sprintf("column %s.%s corrected to %s.%s", table, name, table, fix))
				name = fix
			case ambiguous:
				res.Errors = append(res.Errors,
					fmt.Sprintf("column %s on table %s matches multiple columns and cannot be corrected", name, table))
				continue
			default:
				msg := fmt.Sprintf("column %s does not exist on table %s", name, table)
				if s := closest(name, v.columnNames(table)); s != "" {
					msg += fmt.Sprintf(" (did you mean %s?)", s)
				}
				res.Errors = append(res.Errors, msg)
				continue
			}
		}
		if warning := v.aggregateWarning(ref.agg, table, name); warning != "" {
			res.Warnings = append(res.Warnings, warning)
		}
	}

	res.IsValid = len(res.Errors) == 0
	if len(res.CorrectionsApplied) > 0 {
		res.CorrectedSQL = corrected
	}
	v.logger.Debug("validated query",
		"errors", len(res.Errors), "warnings", len(res.Warnings),
		"corrections", len(res.CorrectionsApplied))
	return res
}

// ValidateSQL checks a bare SQL string with no plan structure.
func (v *Validator) ValidateSQL(sqlText string) *Result {
	return v.Validate(sqlText, nil, nil)
}

// aggregateWarning flags SUM and AVG over columns whose declared type
// is not numeric. COUNT, MIN, and MAX accept any type. Columns without
// a declared type are not judged.
func (v *Validator) aggregateWarning(agg, table, column string) string {
	switch strings.ToUpper(agg) {
	case "SUM", "AVG":
	default:
		return ""
	}
	node := v.graph.Column(table, column)
	if node == nil || node.Meta.DataType == "" || numericType(node.Meta.DataType) {
		return ""
	}
	return fmt.Sprintf("%s over non-numeric column %s.%s (%s)",
		strings.ToUpper(agg), table, column, node.Meta.DataType)
}

// numericType reports whether a declared column type is numeric. The
// match is by substring so dialect variants (bigint, double precision,
// numeric(18,2)) all count.
func numericType(t string) bool {
	t = strings.ToLower(t)
	for _, n := range []string{"int", "numeric", "decimal", "float", "double", "real", "money"} {
		if strings.Contains(t, n) {
			return true
		}
	}
	return false
}

// tableCaseFix finds the canonical table whose name differs from name
// only by case. Ambiguous matches may be settled by an entity naming
// one of the candidates.
func (v *Validator) tableCaseFix(name string, entities []core.Entity) (fix string, ambiguous bool) {
	var matches []string
	for _, t := range v.graph.Tables() {
		if strings.EqualFold(t, name) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		return matches[0], false
	}
	for _, e := range entities {
		for _, m := range matches {
			if e.Table == m {
				return m, false
			}
		}
	}
	return "", true
}

// columnCaseFix is tableCaseFix for a column under a known table.
func (v *Validator) columnCaseFix(table, name string, entities []core.Entity) (fix string, ambiguous bool) {
	var matches []string
	for _, node := range v.graph.ColumnsOf(table) {
		if strings.EqualFold(node.ColumnName(), name) {
			matches = append(matches, node.ColumnName())
		}
	}
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		return matches[0], false
	}
	for _, e := range entities {
		for _, m := range matches {
			if e.Table == table && e.Column == m {
				return m, false
			}
		}
	}
	return "", true
}

func (v *Validator) columnNames(table string) []string {
	nodes := v.graph.ColumnsOf(table)
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.ColumnName())
	}
	return names
}

// planReferences walks a query plan, CTE bodies first, returning table
// references and qualified column references in first-mention order.
// CTE names are virtual tables and never checked against the graph.
func planReferences(q *plan.Query) (tables, columns []reference) {
	virtual := make(map[string]bool, len(q.CTEs))
	for _, cte := range q.CTEs {
		virtual[strings.ToLower(cte.Name)] = true
	}

	c := newCollector(virtual)
	for _, cte := range q.CTEs {
		c.query(cte.Query)
	}
	c.query(q)
	return c.tables, c.columns
}

// collector accumulates deduplicated references.
type collector struct {
	virtual   map[string]bool
	tables    []reference
	columns   []reference
	tableSeen map[string]bool
	colSeen   map[string]int
}

func newCollector(virtual map[string]bool) *collector {
	return &collector{
		virtual:   virtual,
		tableSeen: make(map[string]bool),
		colSeen:   make(map[string]int),
	}
}

func (c *collector) query(q *plan.Query) {
	c.table(q.From)
	for _, j := range q.Joins {
		c.table(j.Table)
		c.scanText(j.On)
	}
	for _, col := range q.Columns {
		c.column(col.Table, col.Name, col.Aggregate)
	}
	for _, f := range q.Filters {
		c.qualified(f.Column)
		c.scanText(f.Raw)
	}
	for _, f := range q.Having {
		c.qualified(f.Column)
		c.scanText(f.Raw)
	}
	for _, g := range q.GroupBy {
		c.qualified(g)
	}
	for _, o := range q.OrderBy {
		c.qualified(o.Column)
	}
}

func (c *collector) table(name string) {
	if name == "" || c.virtual[strings.ToLower(name)] {
		return
	}
	key := strings.ToLower(name)
	if c.tableSeen[key] {
		return
	}
	c.tableSeen[key] = true
	c.tables = append(c.tables, reference{table: name})
}

func (c *collector) column(table, name, agg string) {
	if table == "" || name == "" || name == "*" || c.virtual[strings.ToLower(table)] {
		return
	}
	key := strings.ToLower(table + "." + name)
	if i, ok := c.colSeen[key]; ok {
		if agg != "" && c.columns[i].agg == "" {
			c.columns[i].agg = agg
		}
		return
	}
	c.colSeen[key] = len(c.columns)
	c.columns = append(c.columns, reference{table: table, column: name, agg: agg})
	c.table(table)
}

func (c *collector) qualified(ref string) {
	if table, column, ok := strings.Cut(ref, "."); ok {
		c.column(table, column, "")
	}
}

func (c *collector) scanText(text string) {
	if text == "" {
		return
	}
	for _, m := range qualifiedRe.FindAllStringSubmatch(text, -1) {
		c.column(m[1], m[2], "")
	}
}

// replaceWord swaps whole-word occurrences of old for fix.
func replaceWord(s, old, fix string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
	return re.ReplaceAllString(s, fix)
}

// replaceQualified swaps table.old column references for table.fix.
func replaceQualified(s, table, old, fix string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(table) + `\.` + regexp.QuoteMeta(old) + `\b`)
	return re.ReplaceAllString(s, table+"."+fix)
}
