// Package sqlite registers the SQLite adapter with the adapter registry.
// Import this package with a blank identifier to make the adapter
// available:
//
//	import _ "github.com/querypath-labs/querypath/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/querypath-labs/querypath/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter {
		return New(logger)
	})
}
