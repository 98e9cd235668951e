package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on tty", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"empty mode on tty", Mode(""), true, ModeText},
		{"empty mode piped", Mode(""), false, ModeMarkdown},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit markdown on tty", ModeMarkdown, true, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_PrintsToWriters(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeText)

	r.Println("hello")
	r.Printf("count: %d\n", 3)
	r.Error("boom")

	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, out.String(), "count: 3")
	assert.Contains(t, errOut.String(), "boom")
	assert.NotContains(t, out.String(), "boom", "errors should go to the error writer")
}

func TestRenderer_BufferOutputHasNoANSI(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)

	r.Success("done")
	r.Warning("careful")
	r.StatusLine("schema.yaml", "success", "12 tables")
	r.Println(r.Styles().Header1.Render("Title"))

	assert.False(t, ansiPattern.MatchString(out.String()),
		"buffer-bound renderer should not emit ANSI codes: %q", out.String())
	assert.Contains(t, out.String(), "done")
	assert.Contains(t, out.String(), "careful")
	assert.Contains(t, out.String(), "schema.yaml")
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]any{"valid": true, "errors": []string{}}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, true, decoded["valid"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Tables", FormatHeader(1, "Tables"))
	assert.Equal(t, "## funds", FormatHeader(2, "funds"))
	assert.Equal(t, "# x", FormatHeader(0, "x"))
	assert.Equal(t, "- **Rows**: 42", FormatKeyValue("Rows", "42"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
}
