package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/pkg/validate"
)

// ValidateOptions holds flag values for the validate command.
type ValidateOptions struct {
	Input string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [SQL]",
		Short: "Check SQL against the schema graph",
		Long: `Check a SQL query against the schema graph.

Every table and column reference is verified to exist. References that
differ from the schema only in case are corrected and reported rather
than rejected. Aggregations over non-numeric columns produce warnings,
not errors. No database connection is needed.`,
		Example: `  # Validate an inline query
  querypath validate "SELECT fund_name FROM funds"

  # Validate a file
  querypath validate --input query.sql

  # Validate piped SQL
  cat query.sql | querypath validate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	sqlText, err := sqlInput(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result := cmdCtx.Engine.Validator().Validate(sqlText, nil, nil)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(result); err != nil {
			return err
		}
		return validationErr(result)
	}

	renderValidateResult(r, result)
	return validationErr(result)
}

// sqlInput reads SQL from the first argument, the input file, or piped
// stdin, in that order.
func sqlInput(cmd *cobra.Command, args []string, inputFile string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case inputFile != "":
		content, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(content), nil
	default:
		return "", fmt.Errorf("no SQL to validate: give a query argument, --input, or piped stdin")
	}
}

func renderValidateResult(r *output.Renderer, v *validate.Result) {
	markdown := r.EffectiveMode() == output.ModeMarkdown

	if v.IsValid {
		r.Success("query is valid")
	}
	for _, w := range v.Warnings {
		r.Warning(w)
	}
	for _, e := range v.Errors {
		r.Error(e)
	}

	if v.CorrectedSQL != "" {
		r.Println("")
		if markdown {
			r.Println(output.FormatHeader(2, "Corrected SQL"))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", v.CorrectedSQL))
		} else {
			r.Println(r.Styles().Bold.Render("Corrected SQL:"))
			r.Println(v.CorrectedSQL)
		}
		for _, c := range v.CorrectionsApplied {
			r.Println(r.Styles().Muted.Render("  " + c))
		}
	}
}
