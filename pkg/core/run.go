package core

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// RunContext identifies one pipeline execution.
// It is created once per invocation and is read-only afterwards.
type RunContext struct {
	ID        string
	SourceDir string
	Mode      Mode
	StartedAt time.Time
}

// NewRunContext creates a RunContext with a fresh run identifier.
func NewRunContext(sourceDir string, mode Mode, now time.Time) (*RunContext, error) {
	if sourceDir == "" {
		return nil, fmt.Errorf("source directory is required")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return &RunContext{
		ID:        NewRunID(now),
		SourceDir: sourceDir,
		Mode:      mode,
		StartedAt: now,
	}, nil
}

// NewRunID returns a run identifier of the form 2006-01-02_150405_<9 digits>.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", now.Format("2006-01-02"), now.Format("150405"), 100000000+rand.IntN(900000000))
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the ledger entry for one pipeline execution.
type Run struct {
	ID          string     `json:"id"`
	Mode        Mode       `json:"mode"`
	SourceDir   string     `json:"source_dir"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}
