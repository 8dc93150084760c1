// Package config loads leapingest configuration for the CLI.
//
// Values are layered with koanf: defaults, then the project config file,
// then LEAPINGEST_ environment variables, then explicitly set flags.
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
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/leapingest/internal/config"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Config is the shared configuration type.
type Config = intconfig.Config

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "LEAPINGEST_"

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names to config keys where the two differ.
var flagKeys = map[string]string{
	"training-dir":   "training_data_dir",
	"prediction-dir": "prediction_data_dir",
	"source":         "source_dir",
	"state":          "state_path",
	"database":       "target.database",
	"target-type":    "target.type",
	"models-dir":     "models.dir",
	"model-lookup":   "models.lookup",
	"addr":           "server.addr",
	"watch":          "server.watch",
}

// pathFlags are resolved against the working directory, not the project root.
var pathFlags = []string{"training-dir", "prediction-dir", "source", "schema-dir", "database-dir", "state", "models-dir"}

var configFileUsed string

// inferProjectRoot determines the project root.
// Priority: --project-dir, the explicit config file's directory, the first
// ancestor of the working directory holding a config file, the working directory.
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("project-dir") {
		if dir, _ := flags.GetString("project-dir"); dir != "" {
			return absOrClean(dir)
		}
	}
	if cfgFile != "" {
		return filepath.Dir(absOrClean(cfgFile))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return root
	}
	return cwd
}

func absOrClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// flagKey transforms a flag name into its config key.
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// envKey transforms LEAPINGEST_FEATURES__NEIGHBORS into features.neighbors.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// LoadConfig loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	projectRoot := inferProjectRoot(cfgFile, flags)

	// 1. Defaults
	if err := k.Load(confmap.Provider(intconfig.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" || f.Name == "project-dir" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Flag paths are relative to where the user typed them.
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed && f.Value.String() != "" {
				setPath(&cfg, name, absOrClean(f.Value.String()))
			}
		}
	}

	if cfg.Target == nil {
		cfg.Target = &core.TargetConfig{}
	}
	intconfig.ApplyTargetDefaults(cfg.Target)
	expandTargetEnvVars(cfg.Target)
	cfg.ResolvePaths(projectRoot)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setPath(cfg *Config, flag, path string) {
	switch flag {
	case "training-dir":
		cfg.TrainingDataDir = path
	case "prediction-dir":
		cfg.PredictionDataDir = path
	case "source":
		cfg.SourceDir = path
	case "schema-dir":
		cfg.SchemaDir = path
	case "database-dir":
		cfg.DatabaseDir = path
	case "state":
		cfg.StatePath = path
	case "models-dir":
		cfg.Models.Dir = path
	}
}

// GetConfigFileUsed returns the path to the config file of the last load, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the loaded config from the command context.
// It returns nil when no config was loaded.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns, leaving unknown variables intact.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *core.TargetConfig) {
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}
