package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/querypath-labs/querypath/pkg/core"
)

// MetadataSource supplies live table metadata, typically a database
// adapter.
type MetadataSource interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
}

// Introspect builds a schema description from live database metadata for
// the named tables, then infers relationships from foreign-key naming
// conventions. The result can be handed straight to a Builder or written
// out as a starter schema file.
func Introspect(ctx context.Context, src MetadataSource, tables []string) (*Config, error) {
	cfg := &Config{Tables: make(map[string]TableDef, len(tables))}
	for _, table := range tables {
		meta, err := src.GetTableMetadata(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", table, err)
		}
		def := TableDef{Columns: make([]ColumnDef, 0, len(meta.Columns))}
		for _, col := range meta.Columns {
			def.Columns = append(def.Columns, ColumnDef{
				Name:       col.Name,
				Type:       col.Type,
				PrimaryKey: col.PrimaryKey,
			})
			if col.PrimaryKey && def.PrimaryKey == "" {
				def.PrimaryKey = col.Name
			}
		}
		cfg.Tables[table] = def
	}
	cfg.Relationships = InferRelationships(cfg)
	return cfg, nil
}

// InferRelationships guesses parent→child relationships from the
// `<table>_id` column convention: a column holdings.fund_id pointing at a
// table funds (or fund) yields funds one-to-many holdings. The guesses
// are only as good as the naming discipline of the schema; callers should
// review them before committing the description.
func InferRelationships(cfg *Config) []RelationshipDef {
	byName := make(map[string]string, len(cfg.Tables)*2)
	children := make([]string, 0, len(cfg.Tables))
	for name := range cfg.Tables {
		byName[name] = name
		byName[strings.TrimSuffix(name, "s")] = name
		children = append(children, name)
	}
	// Deterministic relationship order keeps graph construction
	// reproducible, which shortest-path tie-breaking depends on.
	sort.Strings(children)

	var rels []RelationshipDef
	for _, child := range children {
		def := cfg.Tables[child]
		for _, col := range def.Columns {
			ref, ok := strings.CutSuffix(col.Name, "_id")
			if !ok || ref == "" {
				continue
			}
			parent, ok := byName[ref]
			if !ok || parent == child {
				continue
			}
			parentKey := cfg.Tables[parent].PrimaryKey
			if parentKey == "" {
				parentKey = "id"
			}
			rels = append(rels, RelationshipDef{
				FromTable:  parent,
				FromColumn: parentKey,
				ToTable:    child,
				ToColumn:   col.Name,
				Type:       string(OneToMany),
			})
		}
	}
	return rels
}
