// Package config provides the shared configuration types for leapingest.
// It is decoupled from CLI concerns: the CLI loader fills a Config and
// passes it explicitly to the engine and the inspector server.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// FeaturesConfig configures preprocessing.
type FeaturesConfig struct {
	Label              string   `koanf:"label"`
	DropColumns        []string `koanf:"drop_columns"`
	PredictDropColumns []string `koanf:"predict_drop_columns"`
	ColumnsFile        string   `koanf:"columns_file"`
	Neighbors          int      `koanf:"neighbors"`
	NullReport         bool     `koanf:"null_report"`
}

// ModelsConfig configures the model store.
type ModelsConfig struct {
	Dir    string `koanf:"dir"`
	Lookup string `koanf:"lookup"` // exact, substring
}

// ServerConfig configures the read-only inspector.
type ServerConfig struct {
	Addr  string `koanf:"addr"`
	Watch bool   `koanf:"watch"`
}

// Config holds every setting a pipeline invocation needs.
type Config struct {
	ProjectRoot string `koanf:"-"`

	TrainingDataDir   string `koanf:"training_data_dir"`
	PredictionDataDir string `koanf:"prediction_data_dir"`
	SourceDir         string `koanf:"source_dir"` // overrides both mode directories
	SchemaDir         string `koanf:"schema_dir"`
	DatabaseDir       string `koanf:"database_dir"`
	StatePath         string `koanf:"state_path"`

	Target   *core.TargetConfig `koanf:"target"`
	Features FeaturesConfig     `koanf:"features"`
	Models   ModelsConfig       `koanf:"models"`
	Server   ServerConfig       `koanf:"server"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogFormat    string `koanf:"log_format"`
	LogLevel     string `koanf:"log_level"`
}

// DataDir returns the source bucket for a mode.
func (c *Config) DataDir(mode core.Mode) string {
	if c.SourceDir != "" {
		return c.SourceDir
	}
	if mode == core.ModePredict {
		return c.PredictionDataDir
	}
	return c.TrainingDataDir
}

// DatabasePath returns the staging database file for a mode. An explicit
// target database wins; otherwise each mode gets its own file under DatabaseDir.
func (c *Config) DatabasePath(mode core.Mode) string {
	if c.Target != nil && c.Target.Database != "" {
		return c.Target.Database
	}
	ext := ".db"
	if c.Target != nil && c.Target.Type == "duckdb" {
		ext = ".duckdb"
	}
	return filepath.Join(c.DatabaseDir, mode.DatabaseName()+ext)
}

// AdapterConfig returns the staging connection settings for a mode.
func (c *Config) AdapterConfig(mode core.Mode) core.AdapterConfig {
	t := c.Target
	if t == nil {
		t = &core.TargetConfig{Type: DefaultTargetType}
	}
	path := ""
	if t.FileBased() {
		path = c.DatabasePath(mode)
	}
	cfg := t.AdapterConfig(path)
	if cfg.Type == "" {
		cfg.Type = DefaultTargetType
	}
	return cfg
}

// ValidateTarget checks the target against the adapter registry.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return nil
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	switch v := strings.ToLower(strings.TrimSpace(t.Options["null_sentinel"])); v {
	case "", "text", "sql":
	default:
		return fmt.Errorf("invalid target option null_sentinel %q (expected text or sql)", v)
	}
	return nil
}

// Validate checks settings that do not depend on the filesystem.
func (c *Config) Validate() error {
	if c.TrainingDataDir == "" && c.PredictionDataDir == "" && c.SourceDir == "" {
		return fmt.Errorf("no data directory configured")
	}
	if c.SchemaDir == "" {
		return fmt.Errorf("schema_dir is required")
	}
	if c.Features.Neighbors < 0 {
		return fmt.Errorf("features.neighbors must not be negative")
	}
	switch c.Models.Lookup {
	case "", "exact", "substring":
	default:
		return fmt.Errorf("models.lookup must be exact or substring, got %q", c.Models.Lookup)
	}
	return ValidateTarget(c.Target)
}
