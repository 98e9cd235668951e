// Package duckdb provides a DuckDB adapter for QueryPath.
//
// This file registers the adapter with the adapter registry. Import
// this package with a blank identifier to register it:
//
//	import _ "github.com/querypath-labs/querypath/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/querypath-labs/querypath/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
