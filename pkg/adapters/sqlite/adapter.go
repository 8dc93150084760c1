package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
	"github.com/leapstack-labs/leapingest/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// DialectName is the target.type and driver name of this adapter.
const DialectName = "sqlite"

// Dialect is the static SQLite dialect configuration.
var Dialect = &core.DialectConfig{
	Name:          DialectName,
	Identifiers:   core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	TextType:      "TEXT",
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect opens the SQLite database file, creating parent directories as needed.
// An empty path selects an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	path, err := adapter.FilePath(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", path))
	if err := a.Open(ctx, DialectName, params.dsn(path), cfg); err != nil {
		return err
	}
	a.DB.SetMaxOpenConns(1)
	return nil
}

// TableExists checks sqlite_master for the table.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	if a.DB == nil {
		return false, core.ErrNotConnected
	}
	_, name := adapter.ParseQualifiedName(table, Dialect)

	var n int
	err := a.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// GetTableMetadata reads column metadata with PRAGMA table_info.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}
	schema, name := adapter.ParseQualifiedName(table, Dialect)

	//nolint:gosec // Identifier is quoted by the dialect
	rows, err := a.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA %s.table_info(%s)",
		Dialect.QuoteIdentifier(schema), Dialect.QuoteIdentifier(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}

	var columns []adapter.Column
	for rows.Next() {
		var (
			col     adapter.Column
			cid     int
			notNull int
			pk      int
			dflt    sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position = cid + 1
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	_ = rows.Close()

	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	var rowCount int64
	//nolint:gosec // Identifier is quoted by the dialect
	if err := a.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Dialect.QuoteIdentifier(name)).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &adapter.Metadata{
		Schema:   schema,
		Name:     name,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// DialectConfig returns the SQLite dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return Dialect
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
