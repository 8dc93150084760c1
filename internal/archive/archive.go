// Package archive moves the artifacts of earlier runs out of the working
// buckets into timestamped archive directories.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Report lists what one archive pass did, as paths relative to the archive root.
type Report struct {
	Moved   []string
	Skipped []string
}

// Archiver sweeps the working buckets of a layout.
type Archiver struct {
	layout bucket.Layout
	store  core.Store
	logger *slog.Logger
}

// New creates an Archiver. store may be nil.
func New(layout bucket.Layout, store core.Store, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{layout: layout, store: store, logger: logger}
}

// DirName returns the archive subdirectory for a bucket prefix at the run's start time.
func DirName(prefix string, rc *core.RunContext) string {
	return fmt.Sprintf("%s_%s_%s", prefix, rc.StartedAt.Format("2006-01-02"), rc.StartedAt.Format("150405"))
}

// Archive moves every entry of each non-empty working bucket into
// <archive>/<prefix>_<date>_<HHMMSS>. Entries already present at the
// destination are skipped and stay in the bucket. Missing buckets are ignored.
func (a *Archiver) Archive(ctx context.Context, rc *core.RunContext) (*Report, error) {
	report := &Report{}
	for _, w := range a.layout.WorkingBuckets() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entries, err := bucket.ListEntries(w.Dir)
		if err != nil {
			return report, &core.ArchiveIOError{Bucket: w.Name, Path: w.Dir, Err: err}
		}
		if len(entries) == 0 {
			continue
		}

		destDir := filepath.Join(a.layout.Archive, DirName(w.Prefix, rc))
		if err := os.MkdirAll(destDir, 0o750); err != nil {
			return report, &core.ArchiveIOError{Bucket: w.Name, Path: destDir, Err: err}
		}

		for _, name := range entries {
			src := filepath.Join(w.Dir, name)
			dst := filepath.Join(destDir, name)
			rel := filepath.Join(filepath.Base(destDir), name)

			if _, err := os.Lstat(dst); err == nil {
				a.logger.Warn("archive destination exists, skipping",
					slog.String("bucket", w.Name), slog.String("file", name), slog.String("dest", destDir))
				report.Skipped = append(report.Skipped, rel)
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return report, &core.ArchiveIOError{Bucket: w.Name, Path: dst, Err: err}
			}

			if err := bucket.Move(src, dst); err != nil {
				return report, &core.ArchiveIOError{Bucket: w.Name, Path: src, Err: err}
			}
			report.Moved = append(report.Moved, rel)

			if err := a.markArchived(ctx, rc, src, dst); err != nil {
				return report, err
			}
		}
		a.logger.Info("bucket archived", slog.String("bucket", w.Name), slog.String("dest", destDir))
	}
	return report, nil
}

// markArchived records the archive transition for files the ledger knows about.
func (a *Archiver) markArchived(ctx context.Context, rc *core.RunContext, src, dst string) error {
	if a.store == nil {
		return nil
	}
	f, err := a.store.GetFileByPath(ctx, src)
	if err != nil || f == nil {
		return err
	}
	if !core.CanTransition(f.State, core.FileStateArchived) {
		return nil
	}

	tr := &core.FileTransition{
		FileID: f.ID,
		RunID:  rc.ID,
		From:   f.State,
		To:     core.FileStateArchived,
		Path:   dst,
	}
	f.State = core.FileStateArchived
	f.Path = dst
	f.UpdatedAt = rc.StartedAt.UTC()
	if err := a.store.RecordFile(ctx, f); err != nil {
		return err
	}
	return a.store.RecordTransition(ctx, tr)
}
