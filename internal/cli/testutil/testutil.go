// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/querypath-labs/querypath/internal/cli/output"

	// sqlite driver for seeding test databases.
	_ "modernc.org/sqlite"
)

// testSchema is a small fund schema used across CLI tests.
const testSchema = `tables:
  funds:
    description: Investment funds
    primary_key: fund_id
    columns:
      - name: fund_id
        type: integer
        primary_key: true
      - name: fund_name
        type: text
      - name: total_assets
        type: decimal
  holdings:
    description: Positions held by funds
    primary_key: holding_id
    columns:
      - name: holding_id
        type: integer
        primary_key: true
      - name: fund_id
        type: integer
      - name: security_id
        type: integer
      - name: quantity
        type: decimal
      - name: market_value
        type: decimal
  securities:
    description: Tradable securities
    primary_key: security_id
    columns:
      - name: security_id
        type: integer
        primary_key: true
      - name: ticker
        type: text
      - name: sector
        type: text
relationships:
  - from_table: funds
    from_column: fund_id
    to_table: holdings
    to_column: fund_id
    type: one-to-many
  - from_table: securities
    from_column: security_id
    to_table: holdings
    to_column: security_id
    type: one-to-many
`

const testConfig = `schema: schema.yaml
state_path: .querypath/state.db
environment: dev
target:
  type: sqlite
  database: data.db
`

// SetupTestProject creates a temporary project directory with a schema
// description, configuration, and a seeded SQLite database.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "schema.yaml"), []byte(testSchema), 0644); err != nil {
		t.Fatalf("failed to create schema.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "querypath.yaml"), []byte(testConfig), 0644); err != nil {
		t.Fatalf("failed to create querypath.yaml: %v", err)
	}

	SeedTestDatabase(t, filepath.Join(tmpDir, "data.db"))

	return tmpDir
}

// SeedTestDatabase creates a SQLite database matching the test schema
// with a few rows in each table.
func SeedTestDatabase(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ddl := `
		CREATE TABLE funds (
			fund_id INTEGER PRIMARY KEY,
			fund_name TEXT NOT NULL,
			total_assets DECIMAL
		);
		CREATE TABLE securities (
			security_id INTEGER PRIMARY KEY,
			ticker TEXT NOT NULL,
			sector TEXT
		);
		CREATE TABLE holdings (
			holding_id INTEGER PRIMARY KEY,
			fund_id INTEGER REFERENCES funds(fund_id),
			security_id INTEGER REFERENCES securities(security_id),
			quantity DECIMAL,
			market_value DECIMAL
		);

		INSERT INTO funds (fund_id, fund_name, total_assets) VALUES
			(1, 'Global Equity Fund', 250000000),
			(2, 'Fixed Income Fund', 90000000);
		INSERT INTO securities (security_id, ticker, sector) VALUES
			(1, 'ACME', 'Industrials'),
			(2, 'GLOB', 'Technology');
		INSERT INTO holdings (holding_id, fund_id, security_id, quantity, market_value) VALUES
			(1, 1, 1, 15000, 1875000),
			(2, 1, 2, 8000, 3440000),
			(3, 2, 1, 9000, 585000);
	`
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode
// and TTY state. Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the captured stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}

// AssertValidMarkdown performs basic markdown validation: balanced
// code fences and no empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
