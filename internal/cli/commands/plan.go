package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/internal/engine"
	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/validate"
)

// PlanOptions holds the request-shaping flags shared by plan and run.
type PlanOptions struct {
	Table    string
	Join     []string
	Columns  []string
	Filters  []string
	Aggs     []string
	GroupBy  []string
	OrderBy  []string
	Limit    int
	Intent   string
	Request  string
	Validate bool
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build SQL for a query request without executing it",
		Long: `Build SQL for a query request without executing it.

The request is described either by flags (--table, --columns, --filter,
--agg, ...) or by a JSON request document (--request). Column and filter
references may be bare names; they are resolved against the schema
graph, fuzzy-matching close spellings. Joins are derived automatically
along the shortest relationship path from the primary table.`,
		Example: `  # Plan a listing query anchored on a table
  querypath plan --table funds

  # Select columns from related tables (joins are derived)
  querypath plan --table funds --columns fund_name,holdings.market_value

  # Aggregate with grouping
  querypath plan --table holdings --agg sum:market_value --group-by fund_id

  # Top 10 funds by total value
  querypath plan --table funds --agg sum:holdings.market_value:total_value \
    --order-by total_value:desc --intent top_n

  # Plan from a request document and validate the result
  querypath plan --request request.json --validate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}

	addRequestFlags(cmd, opts)

	return cmd
}

// addRequestFlags registers the request-shaping flags used by both
// plan and run.
func addRequestFlags(cmd *cobra.Command, opts *PlanOptions) {
	cmd.Flags().StringVar(&opts.Table, "table", "", "Primary table to anchor the query on")
	cmd.Flags().StringSliceVar(&opts.Join, "join", nil, "Extra tables to join along the shortest path")
	cmd.Flags().StringSliceVarP(&opts.Columns, "columns", "c", nil, "Columns to select, bare or table.column")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "Filter predicate, repeatable (e.g. \"total_assets > 100M\")")
	cmd.Flags().StringArrayVarP(&opts.Aggs, "agg", "a", nil, "Aggregation as function:column[:alias], repeatable")
	cmd.Flags().StringSliceVar(&opts.GroupBy, "group-by", nil, "Columns to group by")
	cmd.Flags().StringArrayVar(&opts.OrderBy, "order-by", nil, "Order term as column[:desc], repeatable")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Row limit")
	cmd.Flags().StringVar(&opts.Intent, "intent", "", "Query intent: list, filter, aggregate, ranking, top_n (inferred when empty)")
	cmd.Flags().StringVarP(&opts.Request, "request", "r", "", "Read a JSON request document from file (- for stdin)")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "Validate the generated SQL against the schema")
}

func runPlan(cmd *cobra.Command, opts *PlanOptions) error {
	req, err := buildPlanRequest(cmd, opts)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := cmdCtx.Engine.Plan(*req)
	if err != nil {
		return err
	}

	return renderPlanResult(cmdCtx.Renderer, result)
}

// buildPlanRequest turns the flag values into an engine request. A
// request document wins over the individual shaping flags.
func buildPlanRequest(cmd *cobra.Command, opts *PlanOptions) (*engine.PlanRequest, error) {
	if opts.Request != "" {
		req, err := loadRequestDocument(cmd, opts.Request)
		if err != nil {
			return nil, err
		}
		if opts.Validate {
			req.Validate = true
		}
		return req, nil
	}

	if opts.Table == "" {
		return nil, fmt.Errorf("either --table or --request is required")
	}

	intent, err := buildIntent(opts)
	if err != nil {
		return nil, err
	}

	return &engine.PlanRequest{
		Entities: []core.Entity{{
			Text:  opts.Table,
			Type:  core.EntityTable,
			Table: opts.Table,
		}},
		Intent:   *intent,
		Columns:  opts.Columns,
		GroupBy:  opts.GroupBy,
		Tables:   opts.Join,
		Validate: opts.Validate,
	}, nil
}

func buildIntent(opts *PlanOptions) (*core.Intent, error) {
	aggs := make([]core.Aggregation, 0, len(opts.Aggs))
	for _, raw := range opts.Aggs {
		agg, err := parseAggregation(raw)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}

	orderBy := make([]core.OrderTerm, 0, len(opts.OrderBy))
	for _, raw := range opts.OrderBy {
		orderBy = append(orderBy, parseOrderTerm(raw))
	}

	intentType, err := resolveIntentType(opts, len(aggs), len(orderBy))
	if err != nil {
		return nil, err
	}

	return &core.Intent{
		Type:         intentType,
		Aggregations: aggs,
		Filters:      opts.Filters,
		OrderBy:      orderBy,
		Limit:        opts.Limit,
	}, nil
}

// resolveIntentType returns the explicit intent when given, otherwise
// infers one from the request shape.
func resolveIntentType(opts *PlanOptions, aggCount, orderCount int) (core.IntentType, error) {
	if opts.Intent != "" {
		switch t := core.IntentType(strings.ToLower(opts.Intent)); t {
		case core.IntentList, core.IntentFilter, core.IntentAggregate, core.IntentRanking, core.IntentTopN:
			return t, nil
		default:
			return "", fmt.Errorf("unknown intent %q (want list, filter, aggregate, ranking, or top_n)", opts.Intent)
		}
	}

	switch {
	case opts.Limit > 0 && (aggCount > 0 || orderCount > 0):
		return core.IntentTopN, nil
	case orderCount > 0:
		return core.IntentRanking, nil
	case aggCount > 0:
		return core.IntentAggregate, nil
	case len(opts.Filters) > 0:
		return core.IntentFilter, nil
	default:
		return core.IntentList, nil
	}
}

// parseAggregation parses "function:column" or "function:column:alias".
func parseAggregation(raw string) (core.Aggregation, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return core.Aggregation{}, fmt.Errorf("invalid aggregation %q (want function:column or function:column:alias)", raw)
	}

	agg := core.Aggregation{
		Function: strings.ToLower(strings.TrimSpace(parts[0])),
		Column:   strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		agg.Alias = strings.TrimSpace(parts[2])
	}
	return agg, nil
}

// parseOrderTerm parses "column", "column:asc", or "column:desc".
func parseOrderTerm(raw string) core.OrderTerm {
	column := strings.TrimSpace(raw)
	desc := false
	if i := strings.LastIndex(column, ":"); i >= 0 {
		switch strings.ToLower(strings.TrimSpace(column[i+1:])) {
		case "desc":
			desc = true
			column = strings.TrimSpace(column[:i])
		case "asc":
			column = strings.TrimSpace(column[:i])
		}
	}
	return core.OrderTerm{Column: column, Desc: desc}
}

func loadRequestDocument(cmd *cobra.Command, path string) (*engine.PlanRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var req engine.PlanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid request document: %w", err)
	}
	return &req, nil
}

func renderPlanResult(r *output.Renderer, result *engine.PlanResult) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(result); err != nil {
			return err
		}
		return validationErr(result.Validation)
	case output.ModeMarkdown:
		return renderPlanMarkdown(r, result)
	default:
		return renderPlanText(r, result)
	}
}

func renderPlanText(r *output.Renderer, result *engine.PlanResult) error {
	styles := r.Styles()

	r.Println(result.SQL)

	// Keep the detail line a SQL comment so the output stays pasteable.
	info := fmt.Sprintf("primary=%s cte=%t cached=%t %dms",
		result.PrimaryTable, result.UsedCTE, result.Cached, result.DurationMS)
	if result.PlanID != "" {
		info += " plan=" + result.PlanID
	}
	r.Println(styles.Muted.Render("-- " + info))

	renderValidation(r, result.Validation)
	return validationErr(result.Validation)
}

func renderPlanMarkdown(r *output.Renderer, result *engine.PlanResult) error {
	r.Println(output.FormatHeader(2, "Plan"))
	r.Println("")
	r.Println(output.FormatCodeBlock("sql", result.SQL))
	r.Println("")
	r.Println(output.FormatKeyValue("Primary table", result.PrimaryTable))
	r.Println(output.FormatKeyValue("CTE", fmt.Sprintf("%t", result.UsedCTE)))
	if result.PlanID != "" {
		r.Println(output.FormatKeyValue("Plan ID", result.PlanID))
	}
	if result.Cached {
		r.Println(output.FormatKeyValue("Cached", "true"))
	}

	renderValidation(r, result.Validation)
	return validationErr(result.Validation)
}

// renderValidation prints warnings, corrections, and errors for a
// validation result. A nil result prints nothing.
func renderValidation(r *output.Renderer, v *validate.Result) {
	if v == nil {
		return
	}
	for _, w := range v.Warnings {
		r.Warning(w)
	}
	if len(v.CorrectionsApplied) > 0 {
		r.Warning("case corrections applied: " + strings.Join(v.CorrectionsApplied, "; "))
	}
	for _, e := range v.Errors {
		r.Error(e)
	}
	if v.IsValid && len(v.Warnings) == 0 {
		r.Success("query is valid")
	}
}

// validationErr converts a failed validation into a command error so
// the process exits non-zero.
func validationErr(v *validate.Result) error {
	if v == nil || v.IsValid {
		return nil
	}
	return fmt.Errorf("validation failed with %d error(s)", len(v.Errors))
}
