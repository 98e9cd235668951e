// Package config provides shared configuration helpers for QueryPath.
// It is decoupled from CLI concerns so any tool that loads a database
// target can apply the same defaults and validation.
package config

import (
	"strings"

	"github.com/querypath-labs/querypath/pkg/core"
)

// Default configuration values.
const (
	DefaultSchemaFile = "schema.yaml"
)

// DefaultSchemaForType returns the default database schema for a target type.
func DefaultSchemaForType(dbType string) string {
	if strings.EqualFold(dbType, "postgres") {
		return "public"
	}
	// SQLite and DuckDB both call their primary schema "main"
	return "main"
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}

	// Apply default schema based on type
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	// Apply type-specific defaults
	if t.Type == "postgres" {
		if t.Port == 0 {
			t.Port = 5432
		}
	}
}
