package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypath-labs/querypath/pkg/core"
)

func sampleResults() *core.ResultSet {
	return &core.ResultSet{
		Columns: []string{"fund_name", "total_assets"},
		Rows: [][]any{
			{"Global Equity Fund", int64(250000000)},
			{"Fixed Income Fund", int64(90000000)},
		},
		RowCount: 2,
	}
}

func TestRenderResultsTable(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, sampleResults(), "table")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Global Equity Fund")
	assert.Contains(t, output, "Fixed Income Fund")
	assert.Contains(t, output, "(2 rows)")
}

func TestRenderResultsTableEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	rs := &core.ResultSet{Columns: []string{"fund_name"}}
	err := renderResults(buf, rs, "table")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "(0 rows)")
}

func TestRenderResultsTableTruncated(t *testing.T) {
	buf := new(bytes.Buffer)
	rs := sampleResults()
	rs.Truncated = true
	err := renderResults(buf, rs, "table")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "(2 rows, truncated)")
}

func TestRenderResultsJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, sampleResults(), "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Global Equity Fund", rows[0]["fund_name"])
}

func TestRenderResultsCSV(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, sampleResults(), "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header + 2 rows

	assert.Equal(t, "fund_name,total_assets", lines[0])
	assert.Equal(t, "Global Equity Fund,250000000", lines[1])
}

func TestRenderResultsMarkdown(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, sampleResults(), "md")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "| fund_name | total_assets |")
	assert.Contains(t, output, "| --- | --- |")
	assert.Contains(t, output, "| Global Equity Fund | 250000000 |")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, "NULL"},
		{"hello", "hello"},
		{42, "42"},
		{3.14, "3.14"},
		{true, "true"},
		{[]byte("raw"), "raw"},
	}

	for _, tt := range tests {
		result := formatValue(tt.input)
		assert.Equal(t, tt.expected, result)
	}
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", `"with
newline"`},
		{`complex,"values"`, `"complex,""values"""`},
	}

	for _, tt := range tests {
		result := escapeCSV(tt.input)
		assert.Equal(t, tt.expected, result)
	}
}
