// Package adapter defines the contract query execution runs through.
// The planning core never executes SQL itself; an Adapter is the
// collaborator that accepts a SQL string and returns a materialized
// result set. Concrete implementations live in pkg/adapters/
// subdirectories and register themselves at init time.
package adapter

import (
	"context"

	"github.com/querypath-labs/querypath/pkg/core"
)

// Aliases so adapter implementations read naturally; the types are
// defined in pkg/core.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// ResultSet is an alias for core.ResultSet.
	ResultSet = core.ResultSet
)

// Adapter is the interface all database adapters implement.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Query executes sql and materializes up to maxRows rows;
	// maxRows <= 0 means unbounded. The result reports whether the
	// bound truncated it.
	Query(ctx context.Context, sql string, maxRows int) (*ResultSet, error)

	// GetTableMetadata retrieves column and row-count metadata for a
	// table, for schema introspection.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// Dialect names the SQL dialect this adapter speaks.
	Dialect() string
}
