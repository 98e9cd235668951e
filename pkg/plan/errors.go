package plan

import "fmt"

// PlanError reports a planning failure detected before any SQL is
// emitted: a missing or unknown primary table, a table with no join
// path from the primary, or a CTE name collision.
type PlanError struct {
	Name   string // offending table or CTE name, when known
	Reason string
}

func (e *PlanError) Error() string {
	if e.Name == "" {
		return "plan error: " + e.Reason
	}
	return fmt.Sprintf("plan error: %s: %s", e.Name, e.Reason)
}
