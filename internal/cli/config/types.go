// Package config provides configuration management for the QueryPath CLI.
//
// This package extends the shared configuration helpers from
// internal/config with CLI-specific fields and functionality. The shared
// target type is defined in pkg/core and re-exported here via a type
// alias for convenience.
package config

import (
	sharedcfg "github.com/querypath-labs/querypath/internal/config"
	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/resolver"
)

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing pkg/core.
type TargetConfig = core.TargetConfig

// ResolverConfig holds the reference resolution policy knobs.
type ResolverConfig struct {
	SimilarityThreshold    float64 `koanf:"similarity_threshold"`
	MaxFuzzyCandidates     int     `koanf:"max_fuzzy_candidates"`
	RestrictToActiveTables bool    `koanf:"restrict_to_active_tables"`
}

// Options converts the config to resolver options. Unset numeric knobs
// fall back to the production defaults.
func (c *ResolverConfig) Options() resolver.Options {
	opts := resolver.DefaultOptions()
	if c == nil {
		return opts
	}
	if c.SimilarityThreshold > 0 {
		opts.SimilarityThreshold = c.SimilarityThreshold
	}
	if c.MaxFuzzyCandidates > 0 {
		opts.MaxFuzzyCandidates = c.MaxFuzzyCandidates
	}
	opts.RestrictToActiveTables = c.RestrictToActiveTables
	return opts
}

// Config holds all CLI configuration options.
type Config struct {
	SchemaPath   string               `koanf:"schema"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	MaxRows      int                  `koanf:"max_rows"`
	Resolver     *ResolverConfig      `koanf:"resolver"`
	Target       *TargetConfig        `koanf:"target"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the inferred project root directory. It is derived
	// at load time, never read from the config file.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	SchemaPath string        `koanf:"schema"`
	StatePath  string        `koanf:"state_path"`
	Target     *TargetConfig `koanf:"target"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultSchemaFile = sharedcfg.DefaultSchemaFile
	DefaultStateFile  = ".querypath/state.db"
	DefaultEnv        = "dev"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultMaxRows    = 1000
)
