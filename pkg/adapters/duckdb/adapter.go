// Package duckdb provides a DuckDB adapter for QueryPath.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"github.com/querypath-labs/querypath/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Params tunes DuckDB beyond the basic connection fields. Decoded from
// the target's params map.
type Params struct {
	// Extensions are installed and loaded after connecting.
	Extensions []string `mapstructure:"extensions"`
	// Settings are applied with SET after connecting.
	Settings map[string]string `mapstructure:"settings"`
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a DuckDB adapter. If logger is nil, a discard logger is
// used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQL dialect for this adapter.
func (a *Adapter) Dialect() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB. Use ":memory:" as the
// path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, cfg); err != nil {
		_ = a.Close()
		a.DB = nil
		return err
	}
	return nil
}

// applyParams loads extensions and applies settings declared in the
// target's params map.
func (a *Adapter) applyParams(ctx context.Context, cfg adapter.Config) error {
	if len(cfg.Params) == 0 {
		return nil
	}
	var params Params
	if err := mapstructure.Decode(cfg.Params, &params); err != nil {
		return fmt.Errorf("invalid duckdb params: %w", err)
	}
	for _, ext := range params.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s", ext)); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := a.Exec(ctx, fmt.Sprintf("LOAD %s", ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
		a.Logger.Debug("loaded duckdb extension", slog.String("extension", ext))
	}
	for key, value := range params.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", key, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// GetTableMetadata retrieves metadata for a table using DuckDB's
// information_schema.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.TableMetadataCommon(ctx, table, "main", func(int) string { return "?" })
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
