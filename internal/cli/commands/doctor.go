package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/internal/engine"
)

// DoctorOutput is the JSON shape of doctor results.
type DoctorOutput struct {
	SchemaPath string         `json:"schema_path"`
	Tables     int            `json:"tables"`
	Edges      int            `json:"edges"`
	Checks     []engine.Check `json:"checks"`
	Healthy    bool           `json:"healthy"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose schema and environment health",
		Long: `Run diagnostics on the project: schema shape, graph connectivity,
the history store, and database reachability.`,
		Example: `  querypath doctor
  querypath doctor -o json`,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	checks := cmdCtx.Engine.Doctor(cmd.Context())

	graph := cmdCtx.Engine.Graph()
	out := &DoctorOutput{
		SchemaPath: cmdCtx.Cfg.SchemaPath,
		Tables:     len(graph.Tables()),
		Edges:      graph.EdgeCount(),
		Checks:     checks,
		Healthy:    true,
	}
	for _, c := range checks {
		if c.Status == engine.CheckFail {
			out.Healthy = false
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}

	if !out.Healthy {
		return fmt.Errorf("doctor found failing checks")
	}
	return nil
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Println("")
	r.Println(styles.Header1.Render("QueryPath Doctor"))
	r.Println("")
	r.Printf("   Schema: %s (%d tables, %d relationships)\n", out.SchemaPath, out.Tables, out.Edges)
	r.Println("")

	for _, check := range out.Checks {
		icon := styles.StatusSuccess.String()
		switch check.Status {
		case engine.CheckWarn:
			icon = styles.Warning.Render("!")
		case engine.CheckFail:
			icon = styles.StatusFailed.String()
		}
		r.Printf("   %s %s: %s\n", icon, titleCaser.String(check.Name), check.Detail)
	}
	r.Println("")

	if out.Healthy {
		r.Println("   " + styles.Success.Render("All checks passed."))
	} else {
		r.Println("   " + styles.Error.Render("Some checks failed."))
	}
	r.Println("")
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	titleCaser := cases.Title(language.English)

	r.Println(output.FormatHeader(2, "QueryPath Doctor"))
	r.Println("")
	r.Println(output.FormatKeyValue("Schema", out.SchemaPath))
	r.Println(output.FormatKeyValue("Tables", fmt.Sprintf("%d", out.Tables)))
	r.Println(output.FormatKeyValue("Relationships", fmt.Sprintf("%d", out.Edges)))
	r.Println("")
	r.Println("| Check | Status | Detail |")
	r.Println("| --- | --- | --- |")
	for _, check := range out.Checks {
		r.Println(fmt.Sprintf("| %s | %s | %s |", titleCaser.String(check.Name), check.Status, check.Detail))
	}
}
