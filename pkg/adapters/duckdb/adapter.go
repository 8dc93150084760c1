package duckdb

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/leapingest/pkg/adapter"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// DialectName is the target.type and driver name of this adapter.
const DialectName = "duckdb"

// Dialect describes DuckDB identifier quoting and placeholders.
var Dialect = &core.DialectConfig{
	Name:          DialectName,
	Identifiers:   core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	TextType:      "VARCHAR",
}

// Adapter stages batches in a DuckDB database file.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New returns an unconnected adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Connect opens cfg.Path (in memory when empty) and applies the
// extensions and settings from cfg.Params.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	path, err := adapter.FilePath(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("opening duckdb database", slog.String("path", path))
	if err := a.Open(ctx, DialectName, path, cfg); err != nil {
		return err
	}
	// SET is session scoped, so every statement must share one connection.
	a.DB.SetMaxOpenConns(1)

	for _, stmt := range params.statements() {
		a.Logger.Debug("applying duckdb session statement", slog.String("sql", stmt))
		if err := a.Exec(ctx, stmt); err != nil {
			_ = a.Close()
			return fmt.Errorf("duckdb %q: %w", stmt, err)
		}
	}
	return nil
}

// TableExists looks the table up in information_schema.tables.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	return a.TableExistsCommon(ctx, table, Dialect)
}

// GetTableMetadata reads the table's columns and row count.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, Dialect)
}

// DialectConfig returns Dialect.
func (a *Adapter) DialectConfig() *core.DialectConfig { return Dialect }

var _ adapter.Adapter = (*Adapter)(nil)
