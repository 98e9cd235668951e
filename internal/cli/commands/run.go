package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/internal/engine"
)

// RunOptions holds flag values for the run command.
type RunOptions struct {
	PlanOptions
	Format string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [SQL]",
		Short: "Plan and execute a query against the configured target",
		Long: `Plan and execute a query against the configured database target.

With request flags (--table, --columns, ...) the query is planned
through the schema graph, validated, and then executed. With a SQL
argument or piped stdin the SQL runs as-is, bypassing planning.
Results are capped at max_rows from the configuration.`,
		Example: `  # Plan and execute
  querypath run --table funds --columns fund_name,total_assets

  # Aggregate across a join
  querypath run --table funds --agg sum:holdings.market_value --group-by fund_name

  # Raw SQL, planner bypassed
  querypath run "SELECT COUNT(*) FROM funds"

  # Piped SQL
  echo "SELECT * FROM funds" | querypath run

  # CSV for scripting
  querypath run --table funds --format csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	addRequestFlags(cmd, &opts.PlanOptions)
	cmd.Flags().StringVar(&opts.Format, "format", "table", "Result format: table, json, csv, md")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	sqlText, planned, err := resolveRunInput(cmd, args, opts)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if cmdCtx.Cfg.Target == nil {
		return fmt.Errorf("no database target configured (set target in querypath.yaml)")
	}

	r := cmdCtx.Renderer

	if sqlText != "" {
		rs, err := cmdCtx.Engine.RunSQL(cmd.Context(), sqlText)
		if err != nil {
			return err
		}
		return renderResults(r.Writer(), rs, effectiveResultFormat(cmd, r, opts.Format))
	}

	result, err := cmdCtx.Engine.Run(cmd.Context(), *planned)
	if err != nil {
		return err
	}

	// Without an explicit --format, -o json emits the full run result.
	if r.EffectiveMode() == output.ModeJSON && !cmd.Flags().Changed("format") {
		return r.JSON(result)
	}

	renderValidation(r, result.Plan.Validation)
	return renderResults(r.Writer(), result.Results, opts.Format)
}

// resolveRunInput decides between raw SQL and a planned request.
// Precedence follows the usual CLI conventions: argument, then request
// flags, then piped stdin.
func resolveRunInput(cmd *cobra.Command, args []string, opts *RunOptions) (string, *engine.PlanRequest, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil, nil
	case opts.Request != "" || opts.Table != "":
		req, err := buildPlanRequest(cmd, &opts.PlanOptions)
		if err != nil {
			return "", nil, err
		}
		return "", req, nil
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText := strings.TrimSpace(string(content))
		if sqlText == "" {
			return "", nil, fmt.Errorf("empty input on stdin")
		}
		return sqlText, nil, nil
	default:
		return "", nil, fmt.Errorf("nothing to run: give SQL, --table, or --request (or use 'querypath repl')")
	}
}

// effectiveResultFormat lets -o json switch raw-SQL results to JSON
// when --format was left at its default.
func effectiveResultFormat(cmd *cobra.Command, r *output.Renderer, format string) string {
	if r.EffectiveMode() == output.ModeJSON && !cmd.Flags().Changed("format") {
		return "json"
	}
	return format
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
