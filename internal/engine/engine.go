// Package engine wires the schema graph, reference resolution, query
// planning, and validation into one request pipeline, with optional
// execution through a database adapter and plan history in SQLite.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/querypath-labs/querypath/internal/state"
	"github.com/querypath-labs/querypath/pkg/adapter"
	"github.com/querypath-labs/querypath/pkg/cache"
	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/plan"
	"github.com/querypath-labs/querypath/pkg/resolver"
	"github.com/querypath-labs/querypath/pkg/schema"
	"github.com/querypath-labs/querypath/pkg/validate"
)

const defaultMaxRows = 1000

// Engine plans and optionally executes queries against one schema.
type Engine struct {
	graph       *schema.Graph
	schemaCfg   *schema.Config
	fingerprint string

	planner   *plan.Builder
	validator *validate.Validator

	resolverOpts resolver.Options
	cache        cache.Cache
	store        state.Store

	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    core.AdapterConfig
	dbConnected bool
	dbMu        sync.Mutex

	maxRows int
	logger  *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// SchemaPath is the path to the YAML schema description.
	SchemaPath string
	// Schema overrides SchemaPath with an already-loaded description.
	Schema *schema.Config
	// StatePath is the path to the SQLite plan history database.
	// Empty disables history.
	StatePath string
	// Target contains adapter/database configuration. Nil disables
	// execution; planning and validation still work.
	Target *core.AdapterConfig
	// Resolver holds the reference resolution policy.
	Resolver resolver.Options
	// Cache stores planned SQL keyed by schema fingerprint and
	// request (optional).
	Cache cache.Cache
	// MaxRows caps rows fetched by Run (defaults to 1000).
	MaxRows int
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine with a lazy database connection. The database
// adapter is only connected when Run or RunSQL is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	schemaCfg := cfg.Schema
	if schemaCfg == nil {
		if cfg.SchemaPath == "" {
			return nil, fmt.Errorf("no schema configured")
		}
		loaded, err := schema.LoadConfig(cfg.SchemaPath)
		if err != nil {
			return nil, err
		}
		schemaCfg = loaded
	}

	graph, err := schema.NewBuilder(logger).Build(schemaCfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("schema graph built",
		"tables", len(schemaCfg.Tables), "nodes", graph.NodeCount(), "edges", graph.EdgeCount())

	var store state.Store
	if cfg.StatePath != "" {
		sqlStore := state.NewSQLiteStore()
		if err := sqlStore.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := sqlStore.Migrate(); err != nil {
			_ = sqlStore.Close()
			return nil, fmt.Errorf("failed to migrate state store: %w", err)
		}
		store = sqlStore
	}

	var dbConfig core.AdapterConfig
	if cfg.Target != nil {
		dbConfig = *cfg.Target
	}

	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	return &Engine{
		graph:        graph,
		schemaCfg:    schemaCfg,
		fingerprint:  schemaCfg.Fingerprint(),
		planner:      plan.NewBuilder(graph, logger),
		validator:    validate.New(graph, logger),
		resolverOpts: cfg.Resolver,
		cache:        cfg.Cache,
		store:        store,
		dbConfig:     dbConfig,
		maxRows:      maxRows,
		logger:       logger,
	}, nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}
	if e.dbConfig.Type == "" {
		return fmt.Errorf("no database target configured")
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected", "dialect", db.Dialect())
	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	e.dbMu.Lock()
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
		e.db = nil
		e.dbConnected = false
	}
	e.dbMu.Unlock()

	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Graph returns the schema knowledge graph.
func (e *Engine) Graph() *schema.Graph {
	return e.graph
}

// SchemaConfig returns the loaded schema description.
func (e *Engine) SchemaConfig() *schema.Config {
	return e.schemaCfg
}

// Fingerprint returns the schema fingerprint plans are recorded under.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Store returns the plan history store, or nil when history is
// disabled.
func (e *Engine) Store() state.Store {
	return e.store
}

// Validator returns the schema validator.
func (e *Engine) Validator() *validate.Validator {
	return e.validator
}
