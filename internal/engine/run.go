package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/querypath-labs/querypath/pkg/core"
)

// RunResult is a planned query together with its execution results.
type RunResult struct {
	Plan        *PlanResult     `json:"plan"`
	Results     *core.ResultSet `json:"results"`
	ExecutionMS int64           `json:"execution_ms"`
}

// Run plans the request and executes the SQL against the configured
// database target. Validation always runs before execution; a plan
// with validation errors is not executed.
func (e *Engine) Run(ctx context.Context, req PlanRequest) (*RunResult, error) {
	req.Validate = true

	planned, err := e.Plan(req)
	if err != nil {
		return nil, err
	}
	if planned.Validation != nil && !planned.Validation.IsValid {
		return nil, fmt.Errorf("plan failed validation: %s",
			strings.Join(planned.Validation.Errors, "; "))
	}

	sqlStr := planned.SQL
	// Unambiguous case corrections are safe to execute.
	if planned.Validation != nil && planned.Validation.CorrectedSQL != "" {
		sqlStr = planned.Validation.CorrectedSQL
	}

	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	rs, err := e.db.Query(ctx, sqlStr, e.maxRows)
	executionMS := time.Since(start).Milliseconds()
	if err != nil {
		e.logger.Debug("query execution failed", "error", err)
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	e.logger.Info("query executed",
		"table", planned.PrimaryTable, "rows", rs.RowCount,
		"truncated", rs.Truncated, "exec_ms", executionMS)

	return &RunResult{
		Plan:        planned,
		Results:     rs,
		ExecutionMS: executionMS,
	}, nil
}

// RunSQL executes raw SQL against the configured database target,
// bypassing planning and validation.
func (e *Engine) RunSQL(ctx context.Context, sqlText string) (*core.ResultSet, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db.Query(ctx, sqlText, e.maxRows)
}

// ExecSQL executes a SQL statement that returns no rows.
func (e *Engine) ExecSQL(ctx context.Context, sqlText string) error {
	if err := e.ensureDBConnected(ctx); err != nil {
		return err
	}
	return e.db.Exec(ctx, sqlText)
}
