package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// BaseSQLAdapter implements the database/sql half of Adapter. Concrete
// adapters embed it and add Connect, catalog lookups and a dialect.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close releases the connection. Closing an unconnected adapter is a no-op.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing staging database")
	}
	db := b.DB
	b.DB = nil
	return db.Close()
}

// IsConnected reports whether Connect succeeded and Close was not called.
func (b *BaseSQLAdapter) IsConnected() bool { return b.DB != nil }

func (b *BaseSQLAdapter) Exec(ctx context.Context, query string, args ...any) error {
	if b.DB == nil {
		return core.ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

func (b *BaseSQLAdapter) Query(ctx context.Context, query string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}
	//nolint:rowserrcheck // the caller iterates and checks Err
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

func (b *BaseSQLAdapter) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// ParseQualifiedName splits "schema.name"; a bare name gets the
// dialect's default schema.
func ParseQualifiedName(table string, d *core.DialectConfig) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok && !strings.Contains(n, ".") {
		return s, n
	}
	return d.DefaultSchema, table
}

// TableExistsCommon looks a table up in information_schema.tables.
func (b *BaseSQLAdapter) TableExistsCommon(ctx context.Context, table string, d *core.DialectConfig) (bool, error) {
	if b.DB == nil {
		return false, core.ErrNotConnected
	}
	schema, name := ParseQualifiedName(table, d)

	//nolint:gosec // only bind parameters are interpolated
	query := "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = " +
		d.Bind(1) + " AND table_name = " + d.Bind(2)

	var n int
	if err := b.DB.QueryRowContext(ctx, query, schema, name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// GetTableMetadataCommon reads information_schema.columns and counts the
// table's rows. A table without columns yields ErrTableNotFound.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table string, d *core.DialectConfig) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}
	schema, name := ParseQualifiedName(table, d)

	//nolint:gosec // only bind parameters are interpolated
	query := "SELECT column_name, data_type, is_nullable, ordinal_position" +
		" FROM information_schema.columns WHERE table_schema = " + d.Bind(1) +
		" AND table_name = " + d.Bind(2) + " ORDER BY ordinal_position"

	rows, err := b.DB.QueryContext(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := &core.TableMetadata{Schema: schema, Name: name}
	for rows.Next() {
		var (
			col      core.Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		meta.Columns = append(meta.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(meta.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	// A failed count leaves RowCount at zero; metadata is still usable.
	//nolint:gosec // identifiers are quoted by the dialect
	_ = b.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.QuoteIdentifier(schema)+"."+d.QuoteIdentifier(name)).
		Scan(&meta.RowCount)
	return meta, nil
}
