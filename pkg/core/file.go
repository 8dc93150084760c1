package core

import "time"

// FileState is the processing state of one input file.
// Exactly one state holds at a time; the bucket a file lives in mirrors it.
type FileState string

// File states.
const (
	FileStateSource    FileState = "source"
	FileStateRejected  FileState = "rejected"
	FileStateSanitized FileState = "sanitized"
	FileStateStaged    FileState = "staged"
	FileStateProcessed FileState = "processed"
	FileStateArchived  FileState = "archived"
)

// fileTransitions lists the allowed state changes.
var fileTransitions = map[FileState][]FileState{
	FileStateSource:    {FileStateRejected, FileStateSanitized},
	FileStateSanitized: {FileStateRejected, FileStateStaged},
	FileStateStaged:    {FileStateProcessed},
	FileStateRejected:  {FileStateArchived},
	FileStateProcessed: {FileStateArchived},
}

// CanTransition reports whether a file may move from one state to another.
func CanTransition(from, to FileState) bool {
	for _, next := range fileTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends a file's life within a run.
func (s FileState) Terminal() bool {
	return s == FileStateRejected || s == FileStateProcessed || s == FileStateArchived
}

// FileRecord tracks one input file across bucket transitions.
type FileRecord struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	State     FileState `json:"state"`
	Path      string    `json:"path"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileTransition is one audited state change of a FileRecord.
type FileTransition struct {
	ID     string    `json:"id"`
	FileID string    `json:"file_id"`
	RunID  string    `json:"run_id"`
	From   FileState `json:"from"`
	To     FileState `json:"to"`
	Path   string    `json:"path"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// SchemaAction classifies one recorded staging table migration.
type SchemaAction string

// Schema actions.
const (
	SchemaActionCreate    SchemaAction = "create"
	SchemaActionAddColumn SchemaAction = "add_column"
	SchemaActionDrop      SchemaAction = "drop"
)

// SchemaChange is one entry of a staging table's schema version log.
type SchemaChange struct {
	ID        string       `json:"id"`
	Table     string       `json:"table"`
	Version   int          `json:"version"`
	Action    SchemaAction `json:"action"`
	Column    string       `json:"column,omitempty"`
	Type      string       `json:"type,omitempty"`
	Position  int          `json:"position"`
	RunID     string       `json:"run_id"`
	AppliedAt time.Time    `json:"applied_at"`
}
