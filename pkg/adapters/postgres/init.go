// Package postgres provides a PostgreSQL adapter for QueryPath.
//
// This file registers the adapter with the adapter registry. Import
// this package with a blank identifier to register it:
//
//	import _ "github.com/querypath-labs/querypath/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/querypath-labs/querypath/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
