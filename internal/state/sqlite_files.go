package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

const fileColumns = `id, run_id, name, state, path, reason, updated_at`

// RecordFile inserts or updates a file record.
// An empty ID is assigned before insert.
func (s *SQLiteStore) RecordFile(ctx context.Context, f *core.FileRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if f.ID == "" {
		f.ID = generateID()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_records (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			path = excluded.path,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		f.ID, f.RunID, f.Name, string(f.State), f.Path, nullable(f.Reason), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record file %s: %w", f.Name, err)
	}
	return nil
}

// GetFile retrieves a file record by ID.
func (s *SQLiteStore) GetFile(ctx context.Context, id string) (*core.FileRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	f, err := scanFile(s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM file_records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// GetFileByPath returns the most recently updated record currently located at path.
// It returns nil without error when no record matches.
func (s *SQLiteStore) GetFileByPath(ctx context.Context, path string) (*core.FileRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	f, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM file_records WHERE path = ? ORDER BY updated_at DESC LIMIT 1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by path: %w", err)
	}
	return f, nil
}

// ListFiles returns the file records of a run ordered by name.
func (s *SQLiteStore) ListFiles(ctx context.Context, runID string) ([]*core.FileRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM file_records WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []*core.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// RecordTransition appends an entry to a file's transition history.
func (s *SQLiteStore) RecordTransition(ctx context.Context, tr *core.FileTransition) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if tr.ID == "" {
		tr.ID = generateID()
	}
	if tr.At.IsZero() {
		tr.At = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_transitions (id, file_id, run_id, from_state, to_state, path, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.FileID, tr.RunID, string(tr.From), string(tr.To), tr.Path, nullable(tr.Reason), formatTime(tr.At),
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// ListTransitions returns a file's transitions in the order they happened.
func (s *SQLiteStore) ListTransitions(ctx context.Context, fileID string) ([]*core.FileTransition, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, run_id, from_state, to_state, path, reason, at
		FROM file_transitions WHERE file_id = ? ORDER BY at, rowid`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.FileTransition
	for rows.Next() {
		var (
			tr           core.FileTransition
			from, to, at string
			reason       sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.FileID, &tr.RunID, &from, &to, &tr.Path, &reason, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		tr.From = core.FileState(from)
		tr.To = core.FileState(to)
		tr.Reason = reason.String
		if tr.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("invalid transition time %q: %w", at, err)
		}
		out = append(out, &tr)
	}
	return out, rows.Err()
}

func scanFile(sc scanner) (*core.FileRecord, error) {
	var (
		f              core.FileRecord
		state, updated string
		reason         sql.NullString
	)
	if err := sc.Scan(&f.ID, &f.RunID, &f.Name, &state, &f.Path, &reason, &updated); err != nil {
		return nil, err
	}
	f.State = core.FileState(state)
	f.Reason = reason.String
	t, err := parseTime(updated)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updated, err)
	}
	f.UpdatedAt = t
	return &f, nil
}
