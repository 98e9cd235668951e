package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/querypath-labs/querypath/pkg/core"
)

// renderResults writes a result set in the given format. Formats are
// table (default), json, csv, and md/markdown.
func renderResults(w io.Writer, rs *core.ResultSet, format string) error {
	switch format {
	case "json":
		return renderResultsJSON(w, rs)
	case "csv":
		return renderResultsCSV(w, rs)
	case "md", "markdown":
		return renderResultsMarkdown(w, rs)
	default:
		return renderResultsTable(w, rs)
	}
}

func renderResultsTable(w io.Writer, rs *core.ResultSet) error {
	if rs.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, values := range rs.Rows {
		row := make(table.Row, len(rs.Columns))
		for i := range rs.Columns {
			row[i] = formatValue(values[i])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows%s)\n", rs.RowCount, truncatedSuffix(rs))
	return nil
}

func renderResultsJSON(w io.Writer, rs *core.ResultSet) error {
	// Rows as column-keyed objects, matching what scripts expect.
	results := make([]map[string]any, 0, rs.RowCount)
	for _, values := range rs.Rows {
		row := make(map[string]any, len(rs.Columns))
		for i, col := range rs.Columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func renderResultsCSV(w io.Writer, rs *core.ResultSet) error {
	_, _ = fmt.Fprintln(w, strings.Join(rs.Columns, ","))

	for _, values := range rs.Rows {
		fields := make([]string, len(rs.Columns))
		for i := range rs.Columns {
			fields[i] = escapeCSV(formatValue(values[i]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(fields, ","))
	}
	return nil
}

func renderResultsMarkdown(w io.Writer, rs *core.ResultSet) error {
	if rs.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(rs.Columns, " | "))
	seps := make([]string, len(rs.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, values := range rs.Rows {
		fields := make([]string, len(rs.Columns))
		for i := range rs.Columns {
			fields[i] = formatValue(values[i])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(fields, " | "))
	}
	return nil
}

func truncatedSuffix(rs *core.ResultSet) string {
	if rs.Truncated {
		return ", truncated"
	}
	return ""
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	// Drivers hand back []byte for text columns
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
