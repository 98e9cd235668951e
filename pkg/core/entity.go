package core

// EntityType classifies what a resolved entity refers to.
type EntityType string

// Entity type constants.
const (
	EntityTable  EntityType = "table"
	EntityColumn EntityType = "column"
	EntityValue  EntityType = "value"
)

// Entity is a resolved reference produced by the upstream entity-resolution
// layer. It maps a piece of user text to a concrete table, column, or
// filter value, together with enough metadata to disambiguate competing
// candidates for the same concept.
type Entity struct {
	// Text is the display text the entity was resolved from.
	Text string `json:"text"`
	// Type classifies the entity (table, column, value).
	Type EntityType `json:"type"`
	// Table is the canonical table this entity maps to. For column
	// entities it is the owning table; for table entities the table
	// itself. Empty for pure value entities.
	Table string `json:"table,omitempty"`
	// Column is the canonical column name for column entities.
	Column string `json:"column,omitempty"`
	// Value is the literal value for value entities.
	Value string `json:"value,omitempty"`
	// Confidence in [0,1] assigned by the resolution layer.
	Confidence float64 `json:"confidence,omitempty"`
	// Priority ranks competing entities for the same concept
	// (higher wins).
	Priority int `json:"priority,omitempty"`
	// OptimalSource marks the preferred data source when several
	// entities cover the same concept.
	OptimalSource bool `json:"optimal_source,omitempty"`
	// Provenance records where the mapping came from (dictionary,
	// embedding match, user override).
	Provenance string `json:"provenance,omitempty"`
}

// Qualified returns the table.column form for column entities, the bare
// table name for table entities, and the empty string otherwise.
func (e Entity) Qualified() string {
	switch e.Type {
	case EntityColumn:
		if e.Table != "" && e.Column != "" {
			return e.Table + "." + e.Column
		}
	case EntityTable:
		return e.Table
	}
	return ""
}
