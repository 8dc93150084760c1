package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// RecordSchemaChange appends an entry to a staging table's schema version log.
func (s *SQLiteStore) RecordSchemaChange(ctx context.Context, ch *core.SchemaChange) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if ch.ID == "" {
		ch.ID = generateID()
	}
	if ch.AppliedAt.IsZero() {
		ch.AppliedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schema_versions (id, table_name, version, action, column_name, column_type, position, run_id, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.Table, ch.Version, string(ch.Action), nullable(ch.Column), nullable(ch.Type),
		ch.Position, ch.RunID, formatTime(ch.AppliedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record schema change for %s: %w", ch.Table, err)
	}
	return nil
}

// ListSchemaChanges returns a table's schema log in version order.
func (s *SQLiteStore) ListSchemaChanges(ctx context.Context, table string) ([]*core.SchemaChange, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, version, action, column_name, column_type, position, run_id, applied_at
		FROM schema_versions WHERE table_name = ? ORDER BY version, position, rowid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.SchemaChange
	for rows.Next() {
		var (
			ch            core.SchemaChange
			action, at    string
			column, ctype sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.Table, &ch.Version, &action, &column, &ctype, &ch.Position, &ch.RunID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan schema change: %w", err)
		}
		ch.Action = core.SchemaAction(action)
		ch.Column = column.String
		ch.Type = ctype.String
		if ch.AppliedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("invalid applied_at %q: %w", at, err)
		}
		out = append(out, &ch)
	}
	return out, rows.Err()
}

// CurrentSchemaVersion returns the highest recorded version of a table, or 0.
func (s *SQLiteStore) CurrentSchemaVersion(ctx context.Context, table string) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	var v sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM schema_versions WHERE table_name = ?`, table).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return int(v.Int64), nil
}
