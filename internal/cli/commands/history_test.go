package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{
			name:     "short sql unchanged",
			input:    "SELECT * FROM funds",
			max:      50,
			expected: "SELECT * FROM funds",
		},
		{
			name:     "whitespace flattened",
			input:    "SELECT *\n  FROM funds\n  WHERE fund_id = 1",
			max:      80,
			expected: "SELECT * FROM funds WHERE fund_id = 1",
		},
		{
			name:     "long sql capped",
			input:    "SELECT fund_name, total_assets FROM funds ORDER BY total_assets DESC",
			max:      30,
			expected: "SELECT fund_name, total_ass...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateSQL(tt.input, tt.max))
		})
	}
}
