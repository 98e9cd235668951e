package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/internal/state"
)

// HistoryOptions holds flag values for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show recent plans from the history store",
		Long: `Show recent plans recorded in the history store, newest first.
With an id argument, show the full record for that plan.`,
		Example: `  # Recent plans
  querypath history

  # More of them
  querypath history --limit 50

  # One plan in full
  querypath history 01K3XQ9ZJ4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryShow(cmd, args[0])
			}
			return runHistoryList(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Number of plans to list")

	return cmd
}

func runHistoryList(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.Store()
	if store == nil {
		return fmt.Errorf("history is disabled (no state_path configured)")
	}

	records, err := store.RecentPlans(opts.Limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(records)
	}

	if len(records) == 0 {
		r.Println("No plans recorded yet. Run 'querypath plan' first.")
		return nil
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	if markdown {
		r.Println("| ID | Created | Intent | Table | Valid | ms | SQL |")
		r.Println("| --- | --- | --- | --- | --- | --- | --- |")
		for _, rec := range records {
			r.Println(fmt.Sprintf("| %s | %s | %s | %s | %t | %d | %s |",
				rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.IntentType,
				rec.PrimaryTable, rec.Valid, rec.DurationMS, truncateSQL(rec.SQL, 60)))
		}
		return nil
	}

	renderPlanTableText(r, records)
	return nil
}

func renderPlanTableText(r *output.Renderer, records []*state.PlanRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Intent", "Table", "Valid", "ms", "SQL"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.IntentType,
			rec.PrimaryTable, rec.Valid, rec.DurationMS, truncateSQL(rec.SQL, 60),
		})
	}
	t.Render()
	r.Println(fmt.Sprintf("(%d plans)", len(records)))
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.Store()
	if store == nil {
		return fmt.Errorf("history is disabled (no state_path configured)")
	}

	record, err := store.PlanByID(id)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(record)
	case output.ModeMarkdown:
		return renderPlanRecordMarkdown(r, record)
	default:
		return renderPlanRecordText(r, record)
	}
}

func renderPlanRecordText(r *output.Renderer, rec *state.PlanRecord) error {
	styles := r.Styles()

	r.Println(styles.Header2.Render("Plan " + rec.ID))
	r.Println(fmt.Sprintf("  Created: %s", rec.CreatedAt.Format("2006-01-02 15:04:05")))
	r.Println(fmt.Sprintf("  Intent:  %s", rec.IntentType))
	r.Println(fmt.Sprintf("  Table:   %s", rec.PrimaryTable))
	r.Println(fmt.Sprintf("  CTE:     %t", rec.UsedCTE))
	r.Println(fmt.Sprintf("  Valid:   %t", rec.Valid))
	r.Println(fmt.Sprintf("  Took:    %dms", rec.DurationMS))
	r.Println(fmt.Sprintf("  Schema:  %s", rec.SchemaVersion))
	r.Println("")
	r.Println(rec.SQL)
	return nil
}

func renderPlanRecordMarkdown(r *output.Renderer, rec *state.PlanRecord) error {
	r.Println(output.FormatHeader(2, "Plan "+rec.ID))
	r.Println("")
	r.Println(output.FormatKeyValue("Created", rec.CreatedAt.Format("2006-01-02 15:04:05")))
	r.Println(output.FormatKeyValue("Intent", rec.IntentType))
	r.Println(output.FormatKeyValue("Table", rec.PrimaryTable))
	r.Println(output.FormatKeyValue("CTE", fmt.Sprintf("%t", rec.UsedCTE)))
	r.Println(output.FormatKeyValue("Valid", fmt.Sprintf("%t", rec.Valid)))
	r.Println(output.FormatKeyValue("Schema", rec.SchemaVersion))
	r.Println("")
	r.Println(output.FormatCodeBlock("sql", rec.SQL))
	return nil
}

// truncateSQL flattens whitespace and caps the display length for the
// listing column.
func truncateSQL(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
