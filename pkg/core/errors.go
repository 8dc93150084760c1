package core

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidMode       = errors.New("invalid mode")
	ErrInvalidTransition = errors.New("invalid file state transition")
	ErrTableNotFound     = errors.New("table not found")
	ErrModelNotFound     = errors.New("model not found")
	ErrAmbiguousModel    = errors.New("ambiguous model lookup")
	ErrNotConnected      = errors.New("database connection not established")
)

// SchemaNotFoundError is returned when no schema definition exists for a mode.
type SchemaNotFoundError struct {
	Mode Mode
	Path string
	Err  error
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema for mode %s not found at %s", e.Mode, e.Path)
}

func (e *SchemaNotFoundError) Unwrap() error { return e.Err }

// SchemaCorruptError is returned when a schema definition is malformed.
type SchemaCorruptError struct {
	Mode   Mode
	Path   string
	Reason string
	Err    error
}

func (e *SchemaCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema %s is corrupt: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("schema %s is corrupt: %s", e.Path, e.Reason)
}

func (e *SchemaCorruptError) Unwrap() error { return e.Err }

// ValidationIOError marks an input file that could not be read during validation.
// The file is isolated in the rejected bucket and the run continues.
type ValidationIOError struct {
	File string
	Err  error
}

func (e *ValidationIOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.File, e.Err)
}

func (e *ValidationIOError) Unwrap() error { return e.Err }

// StagingInsertError is returned when a file's rows could not be inserted.
// The file's transaction was rolled back and the file rejected.
type StagingInsertError struct {
	Table string
	File  string
	Line  int
	Err   error
}

func (e *StagingInsertError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to insert %s into %s at line %d: %v", e.File, e.Table, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to insert %s into %s: %v", e.File, e.Table, e.Err)
}

func (e *StagingInsertError) Unwrap() error { return e.Err }

// ArchiveIOError is returned when a prior-run artifact could not be archived.
type ArchiveIOError struct {
	Bucket string
	Path   string
	Err    error
}

func (e *ArchiveIOError) Error() string {
	return fmt.Sprintf("failed to archive %s from %s bucket: %v", e.Path, e.Bucket, e.Err)
}

func (e *ArchiveIOError) Unwrap() error { return e.Err }

// TransformError is returned when a feature engineering step fails.
type TransformError struct {
	Step string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform step %s failed: %v", e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Stage names a step of the ingestion pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageArchive       Stage = "archive"
	StageSchema        Stage = "schema"
	StageColumnCount   Stage = "column_count"
	StageMissingValues Stage = "missing_values"
	StageSanitize      Stage = "sanitize"
	StageCreateTable   Stage = "create_table"
	StageInsert        Stage = "insert"
	StageExport        Stage = "export"
	StageMoveProcessed Stage = "move_processed"
	StageTransform     Stage = "transform"
)

// StageError wraps a pipeline failure with the stage and the offending artifact.
type StageError struct {
	Stage    Stage
	Artifact string
	Err      error
}

func (e *StageError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Artifact, e.Err)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
