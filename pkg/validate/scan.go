package validate

import (
	"regexp"
	"strings"
)

// Reference scanning for raw SQL text. The scanner is deliberately
// lexical: it recognizes the shapes the plan builder emits (qualified
// names, FROM/JOIN targets, aggregate calls) without parsing SQL.
var (
	cteNameRe   = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\s+AS\s*\(`)
	fromJoinRe  = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_]\w*)`)
	qualifiedRe = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)\b`)
	aggCallRe   = regexp.MustCompile(`(?i)\b(SUM|AVG|COUNT|MIN|MAX)\s*\(\s*(\*|[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)?)\s*\)`)
)

// scanReferences extracts table and qualified-column references from
// SQL text. Names declared as CTEs count as virtual tables and are not
// checked against the graph.
func (v *Validator) scanReferences(sqlText string) (tables, columns []reference) {
	virtual := make(map[string]bool)
	for _, m := range cteNameRe.FindAllStringSubmatch(sqlText, -1) {
		virtual[strings.ToLower(m[1])] = true
	}

	c := newCollector(virtual)
	for _, m := range fromJoinRe.FindAllStringSubmatch(sqlText, -1) {
		c.table(m[1])
	}
	for _, m := range qualifiedRe.FindAllStringSubmatch(sqlText, -1) {
		c.column(m[1], m[2], "")
	}
	for _, m := range aggCallRe.FindAllStringSubmatch(sqlText, -1) {
		fn, arg := m[1], m[2]
		if arg == "*" {
			continue
		}
		if table, column, ok := strings.Cut(arg, "."); ok {
			c.column(table, column, fn)
			continue
		}
		// A bare aggregate argument is attributable only when exactly
		// one of the statement's tables owns a column with that name.
		if owner := v.soleOwner(arg, c.tables); owner != "" {
			c.column(owner, arg, fn)
		}
	}
	return c.tables, c.columns
}

func (v *Validator) soleOwner(column string, tables []reference) string {
	owner := ""
	for _, ref := range tables {
		if v.graph.Column(ref.table, column) == nil {
			continue
		}
		if owner != "" {
			return ""
		}
		owner = ref.table
	}
	return owner
}
