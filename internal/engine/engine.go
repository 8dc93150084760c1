// Package engine runs the ingestion pipeline: it archives the previous
// run, validates and sanitizes source files, stages them in the relational
// target, exports the snapshot and builds the feature set.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/config"
	"github.com/leapstack-labs/leapingest/internal/features"
	"github.com/leapstack-labs/leapingest/internal/modelstore"
	"github.com/leapstack-labs/leapingest/internal/schemastore"
	"github.com/leapstack-labs/leapingest/internal/stager"
	"github.com/leapstack-labs/leapingest/internal/state"
	"github.com/leapstack-labs/leapingest/pkg/adapter"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Config holds engine configuration.
type Config struct {
	// DataDirs maps each mode to its source bucket
	DataDirs map[core.Mode]string
	// Targets maps each mode to its staging connection
	Targets map[core.Mode]core.AdapterConfig
	// SchemaDir holds schema_train and schema_predict definitions
	SchemaDir string
	// StatePath is the path to the SQLite state database
	StatePath string
	// Features configures preprocessing; NullReportPath is set per run
	Features features.Options
	// NullReport enables the null_values.csv report
	NullReport bool
	// ModelsDir is the model store root
	ModelsDir string
	// ModelLookup selects how clusters resolve to models
	ModelLookup modelstore.Lookup
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Now returns the current time (optional, defaults to time.Now)
	Now func() time.Time
}

// ConfigFrom builds the engine configuration from the loaded project config.
func ConfigFrom(c *config.Config, logger *slog.Logger) Config {
	lookup, _ := modelstore.ParseLookup(c.Models.Lookup)
	return Config{
		DataDirs: map[core.Mode]string{
			core.ModeTrain:   c.DataDir(core.ModeTrain),
			core.ModePredict: c.DataDir(core.ModePredict),
		},
		Targets: map[core.Mode]core.AdapterConfig{
			core.ModeTrain:   c.AdapterConfig(core.ModeTrain),
			core.ModePredict: c.AdapterConfig(core.ModePredict),
		},
		SchemaDir: c.SchemaDir,
		StatePath: c.StatePath,
		Features: features.Options{
			Label:              c.Features.Label,
			DropColumns:        c.Features.DropColumns,
			PredictDropColumns: c.Features.PredictDropColumns,
			ColumnsFile:        c.Features.ColumnsFile,
			Neighbors:          c.Features.Neighbors,
		},
		NullReport:  c.Features.NullReport,
		ModelsDir:   c.Models.Dir,
		ModelLookup: lookup,
		Logger:      logger,
	}
}

// Engine orchestrates pipeline runs.
type Engine struct {
	cfg     Config
	store   *state.SQLiteStore
	schemas *schemastore.Store
	models  *modelstore.Store
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an engine and opens its state store.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger.Debug("initializing engine", "state_path", cfg.StatePath, "schema_dir", cfg.SchemaDir)

	if dir := filepath.Dir(cfg.StatePath); cfg.StatePath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &Engine{
		cfg:     cfg,
		store:   store,
		schemas: schemastore.New(cfg.SchemaDir, logger),
		models:  modelstore.New(cfg.ModelsDir, cfg.ModelLookup, logger),
		logger:  logger,
		now:     now,
	}, nil
}

// Close releases the state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	return e.store.Close()
}

// Store returns the state store.
func (e *Engine) Store() core.Store { return e.store }

// Schemas returns the schema store.
func (e *Engine) Schemas() *schemastore.Store { return e.schemas }

// Models returns the model store.
func (e *Engine) Models() *modelstore.Store { return e.models }

// Layout returns the bucket layout of a mode.
func (e *Engine) Layout(mode core.Mode) bucket.Layout {
	return bucket.NewLayout(e.cfg.DataDirs[mode])
}

// Connect opens a staging adapter for mode. The caller closes it.
func (e *Engine) Connect(ctx context.Context, mode core.Mode) (core.Adapter, error) {
	cfg, ok := e.cfg.Targets[mode]
	if !ok {
		return nil, fmt.Errorf("no staging target configured for mode %s", mode)
	}

	e.logger.Debug("connecting to staging database", "adapter_type", cfg.Type, "mode", mode)

	adp, err := adapter.NewAdapter(cfg, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return adp, nil
}

func (e *Engine) stager(mode core.Mode, logger *slog.Logger) *stager.Stager {
	return stager.New(func(ctx context.Context) (core.Adapter, error) {
		return e.Connect(ctx, mode)
	}, e.store, logger).BindSentinelAsNull(stager.SentinelAsNull(e.cfg.Targets[mode].Options))
}
