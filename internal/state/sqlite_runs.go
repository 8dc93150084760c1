package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// ErrNotFound is returned when a requested ledger entry does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `id, mode, source_dir, status, started_at, completed_at, error`

// CreateRun records the start of a pipeline run.
func (s *SQLiteStore) CreateRun(ctx context.Context, rc *core.RunContext) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        rc.ID,
		Mode:      rc.Mode,
		SourceDir: rc.SourceDir,
		Status:    core.RunStatusRunning,
		StartedAt: rc.StartedAt.UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("mode", run.Mode.String()))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, source_dir, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Mode), run.SourceDir, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), nullable(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetLatestRun retrieves the most recent run for a mode.
func (s *SQLiteStore) GetLatestRun(ctx context.Context, mode core.Mode) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE mode = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		string(mode),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*core.Run, error) {
	var (
		run                    core.Run
		mode, status, started  string
		completedAt, errString sql.NullString
	)
	if err := sc.Scan(&run.ID, &mode, &run.SourceDir, &status, &started, &completedAt, &errString); err != nil {
		return nil, err
	}
	run.Mode = core.Mode(mode)
	run.Status = core.RunStatus(status)

	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	run.StartedAt = t

	if completedAt.Valid {
		ct, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &ct
	}
	run.Error = errString.String
	return &run, nil
}
