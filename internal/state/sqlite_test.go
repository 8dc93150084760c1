package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newRunContext(t *testing.T, mode core.Mode, at time.Time) *core.RunContext {
	t.Helper()
	rc, err := core.NewRunContext("data/training_data", mode, at)
	require.NoError(t, err)
	return rc
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_OpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	defer store.Close()
	require.NoError(t, store.InitSchema())

	v, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestSQLiteStore_InitSchema(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"runs", "file_records", "file_transitions", "schema_versions"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s should exist", table)
		_ = rows.Close()
	}

	// Running migrations twice is a no-op.
	require.NoError(t, store.InitSchema())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setup     func(t *testing.T, store *SQLiteStore) *core.Run
		operation func(t *testing.T, store *SQLiteStore, run *core.Run)
		verify    func(t *testing.T, store *SQLiteStore, run *core.Run)
	}{
		{
			name: "create run",
			setup: func(t *testing.T, store *SQLiteStore) *core.Run {
				run, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, base))
				require.NoError(t, err)
				return run
			},
			verify: func(t *testing.T, _ *SQLiteStore, run *core.Run) {
				assert.NotEmpty(t, run.ID)
				assert.Equal(t, core.ModeTrain, run.Mode)
				assert.Equal(t, core.RunStatusRunning, run.Status)
			},
		},
		{
			name: "get run",
			setup: func(t *testing.T, store *SQLiteStore) *core.Run {
				run, err := store.CreateRun(ctx, newRunContext(t, core.ModePredict, base))
				require.NoError(t, err)
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				got, err := store.GetRun(ctx, run.ID)
				require.NoError(t, err)
				assert.Equal(t, run.ID, got.ID)
				assert.Equal(t, core.ModePredict, got.Mode)
				assert.Equal(t, "data/training_data", got.SourceDir)
				assert.True(t, base.Equal(got.StartedAt))
				assert.Nil(t, got.CompletedAt)
			},
		},
		{
			name: "get run not found",
			operation: func(t *testing.T, store *SQLiteStore, _ *core.Run) {
				_, err := store.GetRun(ctx, "nonexistent-id")
				require.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "complete run success",
			setup: func(t *testing.T, store *SQLiteStore) *core.Run {
				run, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, base))
				require.NoError(t, err)
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				require.NoError(t, store.CompleteRun(ctx, run.ID, core.RunStatusCompleted, ""))
			},
			verify: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				got, err := store.GetRun(ctx, run.ID)
				require.NoError(t, err)
				assert.Equal(t, core.RunStatusCompleted, got.Status)
				assert.NotNil(t, got.CompletedAt)
				assert.Empty(t, got.Error)
			},
		},
		{
			name: "complete run with error",
			setup: func(t *testing.T, store *SQLiteStore) *core.Run {
				run, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, base))
				require.NoError(t, err)
				return run
			},
			operation: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				require.NoError(t, store.CompleteRun(ctx, run.ID, core.RunStatusFailed, "something went wrong"))
			},
			verify: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				got, err := store.GetRun(ctx, run.ID)
				require.NoError(t, err)
				assert.Equal(t, core.RunStatusFailed, got.Status)
				assert.Equal(t, "something went wrong", got.Error)
			},
		},
		{
			name: "complete unknown run",
			operation: func(t *testing.T, store *SQLiteStore, _ *core.Run) {
				err := store.CompleteRun(ctx, "missing", core.RunStatusCompleted, "")
				require.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "get latest run per mode",
			setup: func(t *testing.T, store *SQLiteStore) *core.Run {
				_, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, base))
				require.NoError(t, err)
				run2, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, base.Add(time.Minute)))
				require.NoError(t, err)
				_, err = store.CreateRun(ctx, newRunContext(t, core.ModePredict, base.Add(time.Hour)))
				require.NoError(t, err)
				return run2
			},
			verify: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				latest, err := store.GetLatestRun(ctx, core.ModeTrain)
				require.NoError(t, err)
				require.NotNil(t, latest)
				assert.Equal(t, run.ID, latest.ID)
			},
		},
		{
			name: "get latest run no runs",
			verify: func(t *testing.T, store *SQLiteStore, _ *core.Run) {
				latest, err := store.GetLatestRun(ctx, core.ModePredict)
				require.NoError(t, err)
				assert.Nil(t, latest)
			},
		},
		{
			name: "list runs newest first with limit",
			setup: func(t *testing.T, store *SQLiteStore) *core.Run {
				var last *core.Run
				for i := range 3 {
					run, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, base.Add(time.Duration(i)*time.Minute)))
					require.NoError(t, err)
					last = run
				}
				return last
			},
			verify: func(t *testing.T, store *SQLiteStore, run *core.Run) {
				runs, err := store.ListRuns(ctx, 2)
				require.NoError(t, err)
				require.Len(t, runs, 2)
				assert.Equal(t, run.ID, runs[0].ID)

				all, err := store.ListRuns(ctx, 0)
				require.NoError(t, err)
				assert.Len(t, all, 3)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			var run *core.Run
			if tt.setup != nil {
				run = tt.setup(t, store)
			}
			if tt.operation != nil {
				tt.operation(t, store, run)
			}
			if tt.verify != nil {
				tt.verify(t, store, run)
			}
		})
	}
}

func TestSQLiteStore_Files(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, time.Now()))
	require.NoError(t, err)

	f := &core.FileRecord{RunID: run.ID, Name: "b.csv", State: core.FileStateSource, Path: "data/b.csv"}
	require.NoError(t, store.RecordFile(ctx, f))
	require.NotEmpty(t, f.ID)
	require.NoError(t, store.RecordFile(ctx, &core.FileRecord{RunID: run.ID, Name: "a.csv", State: core.FileStateSource, Path: "data/a.csv"}))

	// Upsert moves the record.
	f.State = core.FileStateRejected
	f.Path = "data_rejects/b.csv"
	f.Reason = "column count mismatch"
	f.UpdatedAt = time.Now().Add(time.Second)
	require.NoError(t, store.RecordFile(ctx, f))

	got, err := store.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, core.FileStateRejected, got.State)
	assert.Equal(t, "column count mismatch", got.Reason)

	byPath, err := store.GetFileByPath(ctx, "data_rejects/b.csv")
	require.NoError(t, err)
	require.NotNil(t, byPath)
	assert.Equal(t, f.ID, byPath.ID)

	missing, err := store.GetFileByPath(ctx, "nowhere.csv")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = store.GetFile(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	files, err := store.ListFiles(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.csv", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)
}

func TestSQLiteStore_Transitions(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, newRunContext(t, core.ModeTrain, time.Now()))
	require.NoError(t, err)
	f := &core.FileRecord{RunID: run.ID, Name: "a.csv", State: core.FileStateSource, Path: "data/a.csv"}
	require.NoError(t, store.RecordFile(ctx, f))

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []struct{ from, to core.FileState }{
		{core.FileStateSource, core.FileStateSanitized},
		{core.FileStateSanitized, core.FileStateStaged},
		{core.FileStateStaged, core.FileStateProcessed},
	}
	for i, s := range steps {
		require.NoError(t, store.RecordTransition(ctx, &core.FileTransition{
			FileID: f.ID, RunID: run.ID, From: s.from, To: s.to, Path: f.Path,
			At: at.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := store.ListTransitions(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, s := range steps {
		assert.Equal(t, s.from, got[i].From)
		assert.Equal(t, s.to, got[i].To)
	}
}

func TestSQLiteStore_SchemaVersions(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	v, err := store.CurrentSchemaVersion(ctx, "training_raw_data_t")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	changes := []*core.SchemaChange{
		{Table: "training_raw_data_t", Version: 1, Action: core.SchemaActionCreate, Column: "empid", Type: "INTEGER", Position: 0, RunID: "r1"},
		{Table: "training_raw_data_t", Version: 1, Action: core.SchemaActionCreate, Column: "left", Type: "INTEGER", Position: 1, RunID: "r1"},
		{Table: "training_raw_data_t", Version: 2, Action: core.SchemaActionAddColumn, Column: "salary", Type: "varchar", Position: 2, RunID: "r2"},
		{Table: "prediction_raw_data_t", Version: 1, Action: core.SchemaActionDrop, RunID: "r3"},
	}
	for _, ch := range changes {
		require.NoError(t, store.RecordSchemaChange(ctx, ch))
	}

	v, err = store.CurrentSchemaVersion(ctx, "training_raw_data_t")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	log, err := store.ListSchemaChanges(ctx, "training_raw_data_t")
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "empid", log[0].Column)
	assert.Equal(t, core.SchemaActionAddColumn, log[2].Action)

	pred, err := store.ListSchemaChanges(ctx, "prediction_raw_data_t")
	require.NoError(t, err)
	require.Len(t, pred, 1)
	assert.Empty(t, pred[0].Column)
}
