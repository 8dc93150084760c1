package bucket

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Ledger tracks the files of one run. Every state change moves the file to
// the matching bucket (where one exists) and is recorded in the store.
type Ledger struct {
	layout Layout
	store  core.Store
	rc     *core.RunContext
	logger *slog.Logger
	files  map[string]*core.FileRecord
	now    func() time.Time
}

// NewLedger creates a ledger for a run. store may be nil, in which case
// transitions are tracked in memory only.
func NewLedger(layout Layout, store core.Store, rc *core.RunContext, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{
		layout: layout,
		store:  store,
		rc:     rc,
		logger: logger,
		files:  make(map[string]*core.FileRecord),
		now:    time.Now,
	}
}

// Layout returns the ledger's bucket layout.
func (l *Ledger) Layout() Layout {
	return l.layout
}

// TrackSource registers every file currently in the source bucket.
func (l *Ledger) TrackSource(ctx context.Context) ([]*core.FileRecord, error) {
	names, err := ListFiles(l.layout.Source)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if _, ok := l.files[name]; ok {
			continue
		}
		f := &core.FileRecord{
			RunID:     l.rc.ID,
			Name:      name,
			State:     core.FileStateSource,
			Path:      filepath.Join(l.layout.Source, name),
			UpdatedAt: l.now().UTC(),
		}
		if l.store != nil {
			if err := l.store.RecordFile(ctx, f); err != nil {
				return nil, err
			}
		}
		l.files[name] = f
	}
	l.logger.Debug("tracking source files", slog.Int("count", len(names)))
	return l.Files(), nil
}

// Files returns every tracked file sorted by name.
func (l *Ledger) Files() []*core.FileRecord {
	out := make([]*core.FileRecord, 0, len(l.files))
	for _, f := range l.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Active returns the files still in play (not rejected or processed), sorted by name.
func (l *Ledger) Active() []*core.FileRecord {
	var out []*core.FileRecord
	for _, f := range l.Files() {
		if !f.State.Terminal() {
			out = append(out, f)
		}
	}
	return out
}

// InState returns the tracked files in the given state, sorted by name.
func (l *Ledger) InState(state core.FileState) []*core.FileRecord {
	var out []*core.FileRecord
	for _, f := range l.Files() {
		if f.State == state {
			out = append(out, f)
		}
	}
	return out
}

// Get returns the tracked file with the given name.
func (l *Ledger) Get(name string) (*core.FileRecord, bool) {
	f, ok := l.files[name]
	return f, ok
}

// Reject moves a file to the rejects bucket.
func (l *Ledger) Reject(ctx context.Context, name, reason string) error {
	f, err := l.lookup(name)
	if err != nil {
		return err
	}
	if !core.CanTransition(f.State, core.FileStateRejected) {
		return l.invalid(f, core.FileStateRejected)
	}
	dst := filepath.Join(l.layout.Rejects, freeName(l.layout.Rejects, f.Name, l.rc.ID))
	if err := Move(f.Path, dst); err != nil {
		return err
	}
	l.logger.Info("file rejected", slog.String("file", f.Name), slog.String("reason", reason))
	return l.transition(ctx, f, core.FileStateRejected, dst, reason)
}

// MarkSanitized records an in-place sanitize.
func (l *Ledger) MarkSanitized(ctx context.Context, name string) error {
	return l.markInPlace(ctx, name, core.FileStateSanitized)
}

// MarkStaged records a committed insert.
func (l *Ledger) MarkStaged(ctx context.Context, name string) error {
	return l.markInPlace(ctx, name, core.FileStateStaged)
}

// MoveProcessed moves a staged file to the processed bucket.
func (l *Ledger) MoveProcessed(ctx context.Context, name string) error {
	f, err := l.lookup(name)
	if err != nil {
		return err
	}
	if !core.CanTransition(f.State, core.FileStateProcessed) {
		return l.invalid(f, core.FileStateProcessed)
	}
	dst := filepath.Join(l.layout.Processed, freeName(l.layout.Processed, f.Name, l.rc.ID))
	if err := Move(f.Path, dst); err != nil {
		return err
	}
	return l.transition(ctx, f, core.FileStateProcessed, dst, "")
}

func (l *Ledger) markInPlace(ctx context.Context, name string, to core.FileState) error {
	f, err := l.lookup(name)
	if err != nil {
		return err
	}
	if !core.CanTransition(f.State, to) {
		return l.invalid(f, to)
	}
	return l.transition(ctx, f, to, f.Path, "")
}

func (l *Ledger) lookup(name string) (*core.FileRecord, error) {
	f, ok := l.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s is not tracked by run %s", name, l.rc.ID)
	}
	return f, nil
}

func (l *Ledger) invalid(f *core.FileRecord, to core.FileState) error {
	return fmt.Errorf("%w: %s cannot move from %s to %s", core.ErrInvalidTransition, f.Name, f.State, to)
}

func (l *Ledger) transition(ctx context.Context, f *core.FileRecord, to core.FileState, path, reason string) error {
	tr := &core.FileTransition{
		FileID: f.ID,
		RunID:  l.rc.ID,
		From:   f.State,
		To:     to,
		Path:   path,
		Reason: reason,
		At:     l.now().UTC(),
	}
	f.State = to
	f.Path = path
	f.Reason = reason
	f.UpdatedAt = tr.At

	if l.store == nil {
		return nil
	}
	if err := l.store.RecordFile(ctx, f); err != nil {
		return err
	}
	return l.store.RecordTransition(ctx, tr)
}
