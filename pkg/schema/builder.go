package schema

import (
	"log/slog"
	"sort"
)

// Builder constructs knowledge graphs from schema descriptions.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a graph builder. A nil logger discards output.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// Build validates the description and constructs the graph: one table
// node per table, one column node per column, one edge per declared
// relationship. Construction is deterministic for identical input —
// tables are inserted in sorted name order, columns and relationships in
// declaration order — so shortest-path tie-breaking is reproducible
// across runs.
func (b *Builder) Build(cfg *Config) (*Graph, error) {
	if cfg == nil {
		return nil, &ConfigError{Field: "config", Reason: "schema description is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := newGraph()

	names := make([]string, 0, len(cfg.Tables))
	for name := range cfg.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := cfg.Tables[name]
		g.addNode(&Node{
			Name: name,
			Type: NodeTable,
			Meta: Metadata{Description: t.Description},
		})
		for _, col := range t.Columns {
			g.addNode(&Node{
				Name:  name + "." + col.Name,
				Type:  NodeColumn,
				Table: name,
				Meta: Metadata{
					PrimaryKey:  col.PrimaryKey || col.Name == t.PrimaryKey,
					DataType:    col.Type,
					Description: col.Description,
				},
			})
		}
	}

	for _, rel := range cfg.Relationships {
		kind, err := parseRelType(rel.Type)
		if err != nil {
			// Validate already rejected unknown kinds; kept for
			// programmatically assembled configs.
			return nil, &ConfigError{Field: "relationships", Reason: err.Error()}
		}
		if rel.FromColumn == "" || rel.ToColumn == "" {
			b.logger.Warn("relationship missing join columns, join SQL will use the id convention",
				"from", rel.FromTable, "to", rel.ToTable)
		}
		g.addEdge(&Edge{
			From:       rel.FromTable,
			To:         rel.ToTable,
			Rel:        kind,
			FromColumn: rel.FromColumn,
			ToColumn:   rel.ToColumn,
		})
	}

	b.logger.Debug("schema graph built",
		"tables", len(names), "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}
