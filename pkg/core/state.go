package core

import "context"

// Store defines the interface for the run ledger.
// It records runs, per-file state transitions and staging schema versions.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(ctx context.Context, rc *RunContext) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	GetLatestRun(ctx context.Context, mode Mode) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// File operations
	RecordFile(ctx context.Context, f *FileRecord) error
	GetFile(ctx context.Context, id string) (*FileRecord, error)
	GetFileByPath(ctx context.Context, path string) (*FileRecord, error)
	ListFiles(ctx context.Context, runID string) ([]*FileRecord, error)
	RecordTransition(ctx context.Context, tr *FileTransition) error
	ListTransitions(ctx context.Context, fileID string) ([]*FileTransition, error)

	// Schema version operations
	RecordSchemaChange(ctx context.Context, ch *SchemaChange) error
	ListSchemaChanges(ctx context.Context, table string) ([]*SchemaChange, error)
	CurrentSchemaVersion(ctx context.Context, table string) (int, error)
}
