package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/pkg/schema"
)

// PathsOptions holds flag values for the paths command.
type PathsOptions struct {
	All      bool
	MaxDepth int
}

// pathInfo is the JSON shape of one join path.
type pathInfo struct {
	Tables []string `json:"tables"`
	Joins  []string `json:"joins"`
	Length int      `json:"length"`
}

// pathsOutput is the JSON shape of the paths command.
type pathsOutput struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Paths []pathInfo `json:"paths"`
}

// NewPathsCommand creates the paths command.
func NewPathsCommand() *cobra.Command {
	opts := &PathsOptions{}

	cmd := &cobra.Command{
		Use:   "paths <from> <to>",
		Short: "Show join paths between two tables",
		Long: `Show join paths between two tables in the schema graph.

By default only the shortest path is shown, with the JOIN clauses it
implies. With --all, every simple path up to --max-depth hops is
listed, shortest first.`,
		Example: `  # Shortest join path
  querypath paths funds securities

  # All paths up to 4 hops
  querypath paths funds securities --all

  # Deeper search
  querypath paths funds benchmarks --all --max-depth 6`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaths(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "List every simple path, not just the shortest")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 4, "Maximum path length in hops for --all")

	return cmd
}

func runPaths(cmd *cobra.Command, from, to string, opts *PathsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := collectPaths(cmdCtx.Engine.Graph(), from, to, opts.All, opts.MaxDepth)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderPathsMarkdown(r, out)
	default:
		return renderPathsText(r, out)
	}
}

// collectPaths gathers the shortest path, or all simple paths up to
// maxDepth hops, between two tables.
func collectPaths(graph *schema.Graph, from, to string, all bool, maxDepth int) (pathsOutput, error) {
	for _, name := range []string{from, to} {
		if graph.Table(name) == nil {
			return pathsOutput{}, fmt.Errorf("table %q not found in schema", name)
		}
	}

	var paths []*schema.Path
	if all {
		paths = graph.AllPaths(from, to, maxDepth)
	} else if p := graph.ShortestPath(from, to); p != nil {
		paths = []*schema.Path{p}
	}

	if len(paths) == 0 {
		return pathsOutput{}, fmt.Errorf("no join path between %q and %q", from, to)
	}

	out := pathsOutput{From: from, To: to, Paths: make([]pathInfo, 0, len(paths))}
	for _, p := range paths {
		out.Paths = append(out.Paths, pathInfo{
			Tables: p.Nodes,
			Joins:  graph.JoinPathSQL(p),
			Length: p.Length(),
		})
	}
	return out, nil
}

func renderPathsText(r *output.Renderer, out pathsOutput) error {
	styles := r.Styles()

	for i, p := range out.Paths {
		if i > 0 {
			r.Println("")
		}
		r.Println(styles.Bold.Render(strings.Join(p.Tables, " -> ")) + " " +
			styles.Muted.Render(hopCount(p.Length)))
		for _, join := range p.Joins {
			r.Println("  " + join)
		}
	}
	return nil
}

func renderPathsMarkdown(r *output.Renderer, out pathsOutput) error {
	r.Println(output.FormatHeader(2, fmt.Sprintf("Join paths: %s to %s", out.From, out.To)))
	for _, p := range out.Paths {
		r.Println("")
		r.Println(fmt.Sprintf("**%s** %s", strings.Join(p.Tables, " -> "), hopCount(p.Length)))
		r.Println("")
		r.Println(output.FormatCodeBlock("sql", strings.Join(p.Joins, "\n")))
	}
	return nil
}

func hopCount(n int) string {
	if n == 1 {
		return "(1 hop)"
	}
	return fmt.Sprintf("(%d hops)", n)
}
