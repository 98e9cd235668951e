package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/querypath-labs/querypath/internal/cli/config"
	"github.com/querypath-labs/querypath/internal/cli/output"
	"github.com/querypath-labs/querypath/internal/engine"
	"github.com/querypath-labs/querypath/pkg/cache"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need the schema graph or a database.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	schemaPath := getEnvOrDefault("QUERYPATH_SCHEMA", config.DefaultSchemaFile)
	statePath := getEnvOrDefault("QUERYPATH_STATE_PATH", config.DefaultStateFile)
	environment := getEnvOrDefault("QUERYPATH_ENVIRONMENT", config.DefaultEnv)
	verbose := os.Getenv("QUERYPATH_VERBOSE") == "true"
	outputFormat := os.Getenv("QUERYPATH_OUTPUT")

	return &config.Config{
		SchemaPath:   schemaPath,
		StatePath:    statePath,
		Environment:  environment,
		Verbose:      verbose,
		OutputFormat: outputFormat,
		MaxRows:      config.DefaultMaxRows,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	if cfg.StatePath != "" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, err
			}
		}
	}

	engineCfg := engine.Config{
		SchemaPath: cfg.SchemaPath,
		StatePath:  cfg.StatePath,
		Resolver:   cfg.Resolver.Options(),
		Cache:      cache.NewMemory(0),
		MaxRows:    cfg.MaxRows,
		Logger:     logger,
	}

	// A run target is optional: planning and validation work without one.
	if cfg.Target != nil {
		ac := cfg.Target.AdapterConfig()
		engineCfg.Target = &ac
	}

	return engine.New(engineCfg)
}
