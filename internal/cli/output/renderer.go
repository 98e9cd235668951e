// Package output provides rendering for CLI commands. Output adapts to
// the environment: styled text on a terminal, markdown when piped, and
// machine-readable JSON on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects the output format.
type Mode string

// OutputMode is an alias for Mode kept for readability at call sites.
type OutputMode = Mode

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the selected mode. Styled helpers
// degrade to plain text when the writer is not a terminal.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer with TTY detection on the out writer.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = termenv.NewOutput(f).ColorProfile() != termenv.Ascii
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
// Used by tests to simulate terminal and piped environments.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	// Binding the style renderer to the writer keeps ANSI codes out of
	// buffers and pipes regardless of the process's own terminal.
	styles := NewStyles(lipgloss.NewRenderer(out))
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: styles,
	}
}

// EffectiveMode resolves ModeAuto to a concrete mode: text on a
// terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	switch r.mode {
	case "", ModeAuto:
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	default:
		return r.mode
	}
}

// IsTTY reports whether the out writer is a terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Writer returns the underlying output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the underlying error writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Styles returns the lipgloss styles bound to the output writer.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Println writes a line to the output writer.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted text to the output writer.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// JSON writes v as indented JSON to the output writer.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Header writes a section heading: markdown syntax in markdown mode,
// header styles otherwise.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	switch {
	case level <= 1:
		r.Println(r.styles.Header1.Render(text))
	case level == 2:
		r.Println(r.styles.Header2.Render(text))
	default:
		r.Println(r.styles.Bold.Render(text))
	}
}

// Success writes a styled success message.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.StatusSuccess.String(), r.styles.Success.Render(msg))
}

// Info writes a styled informational message.
func (r *Renderer) Info(msg string) {
	_, _ = fmt.Fprintln(r.out, r.styles.Info.Render(msg))
}

// Warning writes a styled warning message.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render("!"), r.styles.Warning.Render(msg))
}

// Error writes a styled error message to the error writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintf(r.errOut, "%s %s\n", r.styles.StatusFailed.String(), r.styles.Error.Render(msg))
}

// StatusLine writes a name with a status icon and optional detail.
// Status is one of "success", "warn", or "fail".
func (r *Renderer) StatusLine(name, status, detail string) {
	icon := r.styles.StatusSuccess.String()
	switch status {
	case "warn":
		icon = r.styles.Warning.Render("!")
	case "fail":
		icon = r.styles.StatusFailed.String()
	}
	if detail != "" {
		_, _ = fmt.Fprintf(r.out, "%s %s  %s\n", icon, name, r.styles.Muted.Render(detail))
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n", icon, name)
}
