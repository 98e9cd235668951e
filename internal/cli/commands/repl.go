package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/pkg/schema"
)

// ReplOptions holds flag values for the repl command.
type ReplOptions struct {
	Format string
}

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	opts := &ReplOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell with schema-aware helpers",
		Long: `Start an interactive SQL shell against the configured target.

SQL statements end with a semicolon and run as-is. Dot-commands expose
the schema graph: .tables, .schema, .paths, .history, .validate. Tab
completion covers table names and dot-commands.`,
		Example: `  querypath repl
  querypath repl --format md`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "table", "Result format: table, json, csv, md")

	return cmd
}

func runRepl(cmd *cobra.Command, opts *ReplOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Keep command history next to the plan history database.
	var historyFile string
	if cmdCtx.Cfg.StatePath != "" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "querypath> ",
		HistoryFile:     historyFile,
		AutoComplete:    newGraphCompleter(cmdCtx.Engine.Graph()),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "QueryPath REPL (schema: %s)\n", cmdCtx.Cfg.SchemaPath)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt("querypath> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(cmd, cmdCtx, line, opts.Format); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt("      ...> ")
			continue
		}
		rl.SetPrompt("querypath> ")

		query := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		if err := executeREPLQuery(cmd, cmdCtx, query, opts.Format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func executeREPLQuery(cmd *cobra.Command, cmdCtx *CommandContext, query, format string) error {
	rs, err := cmdCtx.Engine.RunSQL(cmd.Context(), query)
	if err != nil {
		return err
	}
	return renderResults(cmd.OutOrStdout(), rs, format)
}

// handleDotCommand runs one dot-command. It returns true when the REPL
// should exit.
func handleDotCommand(cmd *cobra.Command, cmdCtx *CommandContext, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	r := cmdCtx.Renderer
	errOut := cmd.ErrOrStderr()

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".tables":
		renderTableSummariesText(r, tableSummaries(cmdCtx.Engine.Graph()))

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .schema <table>")
			return false
		}
		graph := cmdCtx.Engine.Graph()
		node := graph.Table(parts[1])
		if node == nil {
			_, _ = fmt.Fprintf(errOut, "Error: table %q not found in schema\n", parts[1])
			return false
		}
		_ = renderTableDetailText(r, buildTableDetail(graph, parts[1], node))

	case ".paths":
		if len(parts) < 3 {
			_, _ = fmt.Fprintln(errOut, "Usage: .paths <from> <to>")
			return false
		}
		out, err := collectPaths(cmdCtx.Engine.Graph(), parts[1], parts[2], false, 4)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return false
		}
		_ = renderPathsText(r, out)

	case ".history":
		store := cmdCtx.Engine.Store()
		if store == nil {
			_, _ = fmt.Fprintln(errOut, "History is disabled (no state_path configured)")
			return false
		}
		records, err := store.RecentPlans(10)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return false
		}
		renderPlanTableText(r, records)

	case ".validate":
		rest := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))
		if rest == "" {
			_, _ = fmt.Fprintln(errOut, "Usage: .validate <sql>")
			return false
		}
		renderValidateResult(r, cmdCtx.Engine.Validator().Validate(rest, nil, nil))

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
	}

	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .tables           List schema tables
  .schema <table>   Show columns and relationships for a table
  .paths <from> <to> Show the shortest join path between two tables
  .history          Show recent plans
  .validate <sql>   Validate SQL against the schema without running it
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newGraphCompleter creates a readline completer over schema table
// names and dot-commands.
func newGraphCompleter(graph *schema.Graph) *readline.PrefixCompleter {
	tables := graph.Tables()

	tableItems := make([]readline.PrefixCompleterInterface, 0, len(tables))
	for _, name := range tables {
		tableItems = append(tableItems, readline.PcItem(name))
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(tableItems)+8)
	items = append(items, tableItems...)
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", tableItems...),
		readline.PcItem(".paths", tableItems...),
		readline.PcItem(".history"),
		readline.PcItem(".validate"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
