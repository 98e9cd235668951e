package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	sharedcfg "github.com/querypath-labs/querypath/internal/config"
	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/resolver"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
// This key is shared with root.go via both using the same type.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// findConfigFile finds the config file to use.
// Priority: explicit path > querypath.yaml > querypath.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("querypath.yaml"); err == nil {
		return "querypath.yaml"
	}
	if _, err := os.Stat("querypath.yml"); err == nil {
		return "querypath.yml"
	}
	return ""
}

// configExistsIn checks if a querypath config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"querypath.yaml", "querypath.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a querypath config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Infer from --schema (parent directory if it contains a config file)
//  2. Search upward from CWD for querypath.yaml
//  3. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	// 1. Infer from --schema
	if flags != nil {
		if schemaPath, _ := flags.GetString("schema"); schemaPath != "" && flags.Changed("schema") {
			absSchema, err := filepath.Abs(schemaPath)
			if err == nil {
				parent := filepath.Dir(absSchema)
				if configExistsIn(parent) {
					return parent
				}
			}
		}
	}

	// 2. Search upward from CWD for querypath.yaml
	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	// 3. Default to CWD
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration with an optional target override.
// The targetOverride parameter specifies which environment's target to use.
// The flags parameter allows CLI flags to override config file and env var values.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Infer project root from flags before loading config. This enables
	// the "anchor pattern" where --schema testdata/schema.yaml implies
	// the project root is testdata/ when it carries a config file.
	projectRoot := inferProjectRoot(flags)

	// Track paths that were explicitly provided as flags (already relative
	// to CWD). These are converted to absolute paths up front to prevent
	// double-resolution when the project root was inferred from them.
	var flagSchemaPath, flagStatePath string
	if flags != nil {
		if flags.Changed("schema") {
			if v, _ := flags.GetString("schema"); v != "" {
				flagSchemaPath, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("state") {
			if v, _ := flags.GetString("state"); v != "" {
				flagStatePath, _ = filepath.Abs(v)
			}
		}
	}

	// If an explicit config file is provided, use its directory as project
	// root (unless a more specific hint was given via flags)
	if cfgFile != "" && projectRoot == inferProjectRoot(nil) {
		if absPath, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(absPath)
		}
	}

	// 1. Load defaults
	defaultResolver := resolver.DefaultOptions()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"schema":      DefaultSchemaFile,
		"state_path":  DefaultStateFile,
		"environment": DefaultEnv,
		"verbose":     false,
		"output":      DefaultOutput,
		"max_rows":    DefaultMaxRows,
		"resolver.similarity_threshold":      defaultResolver.SimilarityThreshold,
		"resolver.max_fuzzy_candidates":      defaultResolver.MaxFuzzyCandidates,
		"resolver.restrict_to_active_tables": defaultResolver.RestrictToActiveTables,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	// Search in project root if no explicit config file provided
	if cfgFile == "" {
		for _, name := range []string{"querypath.yaml", "querypath.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (QUERYPATH_ prefix)
	// Transform: QUERYPATH_STATE_PATH -> state_path
	if err := k.Load(env.Provider("QUERYPATH_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "QUERYPATH_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// EXPLICIT MAPPING: the CLI uses --state and --env for
			// brevity, but the config struct uses state_path and
			// environment for clarity
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			if key == "env" {
				return "environment", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Set project root and resolve relative paths.
	// Paths explicitly provided via flags keep the pre-computed absolute
	// paths (relative to CWD at flag parse time); paths from the config
	// file or defaults resolve relative to the project root.
	cfg.ProjectRoot = projectRoot

	if flagSchemaPath != "" {
		cfg.SchemaPath = flagSchemaPath
	} else {
		cfg.SchemaPath = resolvePathRelativeTo(cfg.SchemaPath, projectRoot)
	}
	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	// Determine which environment to use for target selection
	envForTarget := cfg.Environment
	if targetOverride != "" {
		envForTarget = targetOverride
	}

	// Apply environment-specific overrides if an environment is selected
	if envForTarget != "" && cfg.Environments != nil {
		if envCfg, ok := cfg.Environments[envForTarget]; ok {
			// Apply path overrides (only when selected by the configured
			// environment, not a one-off --target override)
			if targetOverride == "" {
				if envCfg.SchemaPath != "" && flagSchemaPath == "" {
					cfg.SchemaPath = resolvePathRelativeTo(envCfg.SchemaPath, projectRoot)
				}
				if envCfg.StatePath != "" && flagStatePath == "" {
					cfg.StatePath = resolvePathRelativeTo(envCfg.StatePath, projectRoot)
				}
			}

			// Merge environment target with base target
			if envCfg.Target != nil {
				cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
			}
		}
	}

	// A nil target is allowed: planning and validation work without a
	// database, only run needs one.
	if cfg.Target != nil {
		sharedcfg.ApplyTargetDefaults(cfg.Target)
		expandTargetEnvVars(cfg.Target)

		// File-backed databases resolve relative to the project root,
		// same as schema and state paths. URIs and :memory: stay as-is.
		if (cfg.Target.Type == "sqlite" || cfg.Target.Type == "duckdb") &&
			cfg.Target.Database != ":memory:" && !strings.HasPrefix(cfg.Target.Database, "file:") {
			cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
		}

		if err := sharedcfg.ValidateTarget(cfg.Target); err != nil {
			return nil, fmt.Errorf("invalid target configuration: %w", err)
		}
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *core.TargetConfig) *core.TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	// Start with a copy of base
	merged := &core.TargetConfig{
		Type:     base.Type,
		Database: base.Database,
		Host:     base.Host,
		Port:     base.Port,
		User:     base.User,
		Password: base.Password,
		Schema:   base.Schema,
		Options:  make(map[string]string),
		Params:   make(map[string]any),
	}

	// Copy base options
	for k, v := range base.Options {
		merged.Options[k] = v
	}

	// Copy base params
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	// Apply overrides
	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}

	// Merge options
	for k, v := range override.Options {
		merged.Options[k] = v
	}

	// Merge params (override takes precedence)
	for k, v := range override.Params {
		merged.Params[k] = v
	}

	return merged
}
