package schema

import "fmt"

// JoinClause is one JOIN step along a path: the table being joined and
// the ON condition connecting it.
type JoinClause struct {
	Table     string
	Condition string
}

// SQL renders the clause.
func (j JoinClause) SQL() string {
	return fmt.Sprintf("JOIN %s ON %s", j.Table, j.Condition)
}

// JoinClauses derives one join per edge in traversal order. The joined
// table is the traversal target of each step; the ON condition always
// names the declared join columns on their declared tables, so an edge
// traversed against its declared direction still emits the same
// condition. Edges without explicit join columns fall back to the
// `<from>.id = <to>.<from>_id` convention — a heuristic, not a verified
// mapping.
func (g *Graph) JoinClauses(p *Path) []JoinClause {
	if p == nil || len(p.Edges) == 0 {
		return nil
	}
	clauses := make([]JoinClause, 0, len(p.Edges))
	for i, e := range p.Edges {
		fromCol, toCol := e.FromColumn, e.ToColumn
		if fromCol == "" || toCol == "" {
			fromCol = "id"
			toCol = e.From + "_id"
		}
		clauses = append(clauses, JoinClause{
			Table:     p.Nodes[i+1],
			Condition: fmt.Sprintf("%s.%s = %s.%s", e.From, fromCol, e.To, toCol),
		})
	}
	return clauses
}

// JoinPathSQL renders the join clauses for a path, one string per edge.
func (g *Graph) JoinPathSQL(p *Path) []string {
	clauses := g.JoinClauses(p)
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.SQL()
	}
	return out
}
