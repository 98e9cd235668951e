package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/pkg/schema"
)

// tableSummary is the JSON shape of one table in the listing.
type tableSummary struct {
	Name        string `json:"name"`
	Columns     int    `json:"columns"`
	Description string `json:"description,omitempty"`
}

// tableDetail is the JSON shape of a single-table view.
type tableDetail struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Columns     []columnDetail   `json:"columns"`
	Outgoing    []relationDetail `json:"outgoing,omitempty"`
	Incoming    []relationDetail `json:"incoming,omitempty"`
}

type columnDetail struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	PrimaryKey  bool   `json:"primary_key,omitempty"`
	Description string `json:"description,omitempty"`
}

type relationDetail struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables [table]",
		Short: "List schema tables or show one table's columns and relationships",
		Long: `List the tables in the schema graph, or show the columns and
relationships of a single table.`,
		Example: `  # List all tables
  querypath tables

  # Show one table
  querypath tables funds

  # Machine-readable listing
  querypath tables -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runTableDetail(cmd, args[0])
			}
			return runTableList(cmd)
		},
	}

	return cmd
}

func runTableList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	summaries := tableSummaries(cmdCtx.Engine.Graph())

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(summaries)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(2, "Tables"))
		r.Println("")
		r.Println("| Table | Columns | Description |")
		r.Println("| --- | --- | --- |")
		for _, s := range summaries {
			r.Println(fmt.Sprintf("| %s | %d | %s |", s.Name, s.Columns, s.Description))
		}
		return nil
	default:
		renderTableSummariesText(r, summaries)
		return nil
	}
}

func tableSummaries(graph *schema.Graph) []tableSummary {
	summaries := make([]tableSummary, 0, len(graph.Tables()))
	for _, name := range graph.Tables() {
		node := graph.Table(name)
		summaries = append(summaries, tableSummary{
			Name:        name,
			Columns:     len(graph.ColumnsOf(name)),
			Description: node.Meta.Description,
		})
	}
	return summaries
}

func renderTableSummariesText(r *output.Renderer, summaries []tableSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Columns", "Description"})
	for _, s := range summaries {
		t.AppendRow(table.Row{s.Name, s.Columns, s.Description})
	}
	t.Render()
	r.Println(fmt.Sprintf("(%d tables)", len(summaries)))
}

func runTableDetail(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	graph := cmdCtx.Engine.Graph()
	node := graph.Table(name)
	if node == nil {
		return fmt.Errorf("table %q not found in schema (see 'querypath tables')", name)
	}

	detail := buildTableDetail(graph, name, node)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(detail)
	case output.ModeMarkdown:
		return renderTableDetailMarkdown(r, detail)
	default:
		return renderTableDetailText(r, detail)
	}
}

func buildTableDetail(graph *schema.Graph, name string, node *schema.Node) tableDetail {
	detail := tableDetail{
		Name:        name,
		Description: node.Meta.Description,
	}

	columns := graph.ColumnsOf(name)
	sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })
	for _, col := range columns {
		detail.Columns = append(detail.Columns, columnDetail{
			Name:        col.ColumnName(),
			Type:        col.Meta.DataType,
			PrimaryKey:  col.Meta.PrimaryKey,
			Description: col.Meta.Description,
		})
	}

	outgoing, incoming := graph.Relationships(name)
	for _, e := range outgoing {
		detail.Outgoing = append(detail.Outgoing, relationDetail{
			From: e.From + "." + e.FromColumn,
			To:   e.To + "." + e.ToColumn,
			Type: string(e.Rel),
		})
	}
	for _, e := range incoming {
		detail.Incoming = append(detail.Incoming, relationDetail{
			From: e.From + "." + e.FromColumn,
			To:   e.To + "." + e.ToColumn,
			Type: string(e.Rel),
		})
	}

	return detail
}

func renderTableDetailText(r *output.Renderer, detail tableDetail) error {
	styles := r.Styles()

	r.Println(styles.Header2.Render("Table: " + detail.Name))
	if detail.Description != "" {
		r.Println(styles.Muted.Render(detail.Description))
	}
	r.Println("")

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Key", "Description"})
	for _, col := range detail.Columns {
		key := ""
		if col.PrimaryKey {
			key = "PK"
		}
		t.AppendRow(table.Row{col.Name, col.Type, key, col.Description})
	}
	t.Render()

	if len(detail.Outgoing)+len(detail.Incoming) > 0 {
		r.Println("")
		r.Println(styles.Bold.Render("Relationships:"))
		for _, rel := range detail.Outgoing {
			r.Println(fmt.Sprintf("  %s -> %s (%s)", rel.From, rel.To, rel.Type))
		}
		for _, rel := range detail.Incoming {
			r.Println(fmt.Sprintf("  %s <- %s (%s)", rel.To, rel.From, rel.Type))
		}
	}
	return nil
}

func renderTableDetailMarkdown(r *output.Renderer, detail tableDetail) error {
	r.Println(output.FormatHeader(2, detail.Name))
	if detail.Description != "" {
		r.Println("")
		r.Println(detail.Description)
	}
	r.Println("")
	r.Println("| Column | Type | Key | Description |")
	r.Println("| --- | --- | --- | --- |")
	for _, col := range detail.Columns {
		key := ""
		if col.PrimaryKey {
			key = "PK"
		}
		r.Println(fmt.Sprintf("| %s | %s | %s | %s |", col.Name, col.Type, key, col.Description))
	}

	if len(detail.Outgoing)+len(detail.Incoming) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(3, "Relationships"))
		r.Println("")
		for _, rel := range detail.Outgoing {
			r.Println(fmt.Sprintf("- %s -> %s (%s)", rel.From, rel.To, rel.Type))
		}
		for _, rel := range detail.Incoming {
			r.Println(fmt.Sprintf("- %s <- %s (%s)", rel.To, rel.From, rel.Type))
		}
	}
	return nil
}
