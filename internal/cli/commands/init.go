package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/pkg/adapter"
	"github.com/querypath-labs/querypath/pkg/core"

	// The example project seeds a SQLite database.
	_ "github.com/querypath-labs/querypath/pkg/adapters/sqlite"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new QueryPath project",
		Long: `Initialize a new QueryPath project.

This creates:
  - schema.yaml describing tables and relationships
  - querypath.yaml project configuration
  - .gitignore for local state

Use --example to scaffold a working fund-management demo instead: a
six-table schema plus a seeded SQLite database ready for 'querypath run'.`,
		Example: `  # Initialize in current directory
  querypath init

  # Initialize with a seeded example project
  querypath init my-project --example

  # Force overwrite existing config
  querypath init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			if example {
				return runInitExample(cmd.Context(), r, dir, force)
			}
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a seeded example project")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := scaffoldProject(r, "minimal", dir, force); err != nil {
		return err
	}

	r.Println("")
	r.Success("QueryPath project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Describe your tables in schema.yaml")
	r.Println("  2. Run 'querypath tables' to inspect the graph")
	r.Println("  3. Run 'querypath plan --table <name>' to build queries")

	return nil
}

func runInitExample(ctx context.Context, r *output.Renderer, dir string, force bool) error {
	if err := scaffoldProject(r, "example", dir, force); err != nil {
		return err
	}

	if err := seedExampleDatabase(ctx, dir); err != nil {
		return fmt.Errorf("failed to seed example database: %w", err)
	}
	r.StatusLine("demo.db", "success", "seeded")

	r.Println("")
	r.Success("QueryPath example project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  querypath tables                     Inspect the schema graph")
	r.Println("  querypath paths funds securities     Show join paths")
	r.Println("  querypath run --table funds          Plan and execute a query")
	r.Println("  querypath repl                       Explore interactively")

	return nil
}

func scaffoldProject(r *output.Renderer, template, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "querypath.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("querypath.yaml already exists. Use --force to overwrite")
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	return nil
}

// seedExampleDatabase creates and populates demo.db from the embedded
// seed script.
func seedExampleDatabase(ctx context.Context, dir string) error {
	seedSQL, err := templateFS.ReadFile("templates/example/seed.sql")
	if err != nil {
		return err
	}

	cfg := core.AdapterConfig{
		Type:     "sqlite",
		Database: filepath.Join(dir, "demo.db"),
		Path:     filepath.Join(dir, "demo.db"),
	}

	db, err := adapter.NewAdapter(cfg, nil)
	if err != nil {
		return err
	}
	if err := db.Connect(ctx, cfg); err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Exec(ctx, string(seedSQL))
}
