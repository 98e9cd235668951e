package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ColumnDef describes one column in the schema description.
type ColumnDef struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	PrimaryKey  bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
}

// TableDef describes one table in the schema description.
type TableDef struct {
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	PrimaryKey  string      `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	Columns     []ColumnDef `yaml:"columns" json:"columns"`
}

// RelationshipDef declares a relationship between two tables, optionally
// naming the join columns on each side.
type RelationshipDef struct {
	FromTable  string `yaml:"from_table" json:"from_table"`
	FromColumn string `yaml:"from_column,omitempty" json:"from_column,omitempty"`
	ToTable    string `yaml:"to_table" json:"to_table"`
	ToColumn   string `yaml:"to_column,omitempty" json:"to_column,omitempty"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Config is the declarative schema description the graph is built from.
type Config struct {
	Tables        map[string]TableDef `yaml:"tables" json:"tables"`
	Relationships []RelationshipDef   `yaml:"relationships,omitempty" json:"relationships,omitempty"`
}

// ConfigError reports a malformed schema description. It is fatal to
// graph construction: no graph is produced for a schema that fails
// validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid schema description: %s: %s", e.Field, e.Reason)
}

// Validate checks the structural requirements the graph builder relies
// on: non-empty table and column names, relationships that reference
// declared tables, and known relationship kinds.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return &ConfigError{Field: "tables", Reason: "at least one table is required"}
	}
	for name, t := range c.Tables {
		if name == "" {
			return &ConfigError{Field: "tables", Reason: "table name must not be empty"}
		}
		if len(t.Columns) == 0 {
			return &ConfigError{Field: name, Reason: "table has no columns"}
		}
		for i, col := range t.Columns {
			if col.Name == "" {
				return &ConfigError{
					Field:  fmt.Sprintf("%s.columns[%d]", name, i),
					Reason: "column name must not be empty",
				}
			}
		}
	}
	for i, rel := range c.Relationships {
		field := fmt.Sprintf("relationships[%d]", i)
		if rel.FromTable == "" || rel.ToTable == "" {
			return &ConfigError{Field: field, Reason: "from_table and to_table are required"}
		}
		from, ok := c.Tables[rel.FromTable]
		if !ok {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown table %q", rel.FromTable)}
		}
		to, ok := c.Tables[rel.ToTable]
		if !ok {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown table %q", rel.ToTable)}
		}
		if rel.FromColumn != "" && !hasColumn(from, rel.FromColumn) {
			return &ConfigError{
				Field:  field,
				Reason: fmt.Sprintf("table %q has no column %q", rel.FromTable, rel.FromColumn),
			}
		}
		if rel.ToColumn != "" && !hasColumn(to, rel.ToColumn) {
			return &ConfigError{
				Field:  field,
				Reason: fmt.Sprintf("table %q has no column %q", rel.ToTable, rel.ToColumn),
			}
		}
		if _, err := parseRelType(rel.Type); err != nil {
			return &ConfigError{Field: field, Reason: err.Error()}
		}
	}
	return nil
}

func hasColumn(t TableDef, name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// parseRelType maps the declared kind to a RelType. An empty kind
// defaults to one-to-many, matching the common parent→child declaration.
func parseRelType(s string) (RelType, error) {
	switch s {
	case "", string(OneToMany):
		return OneToMany, nil
	case string(ManyToOne):
		return ManyToOne, nil
	case string(ManyToMany):
		return ManyToMany, nil
	default:
		return "", fmt.Errorf("unknown relationship type %q", s)
	}
}

// Fingerprint returns a stable content hash identifying this schema
// version. JSON marshaling sorts map keys, so identical descriptions
// hash identically regardless of load order.
func (c *Config) Fingerprint() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
