// Package bucket implements the filesystem buckets that back file state and
// the ledger that records every transition between them.
package bucket

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

// Fixed file names inside the validation bucket.
const (
	SnapshotFile   = "InputFile.csv"
	NullReportFile = "null_values.csv"
)

// Layout holds the sibling directories derived from a source directory.
type Layout struct {
	Source     string
	Rejects    string
	Validation string
	Processed  string
	Results    string
	Archive    string
}

// NewLayout derives the bucket directories for a source directory.
func NewLayout(source string) Layout {
	source = filepath.Clean(source)
	return Layout{
		Source:     source,
		Rejects:    source + "_rejects",
		Validation: source + "_validation",
		Processed:  source + "_processed",
		Results:    source + "_results",
		Archive:    source + "_archive",
	}
}

// SnapshotPath is the fixed location of the exported staging snapshot.
func (l Layout) SnapshotPath() string {
	return filepath.Join(l.Validation, SnapshotFile)
}

// NullReportPath is the location of the per-column missing value report.
func (l Layout) NullReportPath() string {
	return filepath.Join(l.Validation, NullReportFile)
}

// Working is one archivable bucket.
type Working struct {
	Name   string // bucket name used in logs and errors
	Dir    string
	Prefix string // archive subdirectory prefix
}

// WorkingBuckets returns the buckets the archiver sweeps, in sweep order.
func (l Layout) WorkingBuckets() []Working {
	return []Working{
		{Name: "rejects", Dir: l.Rejects, Prefix: "reject"},
		{Name: "validation", Dir: l.Validation, Prefix: "validation"},
		{Name: "processed", Dir: l.Processed, Prefix: "processed"},
		{Name: "results", Dir: l.Results, Prefix: "results"},
	}
}

// All returns every bucket directory keyed by name.
func (l Layout) All() map[string]string {
	return map[string]string{
		"source":     l.Source,
		"rejects":    l.Rejects,
		"validation": l.Validation,
		"processed":  l.Processed,
		"results":    l.Results,
		"archive":    l.Archive,
	}
}

// ListFiles returns the names of the regular, non-hidden files in dir in
// lexicographic order. A missing directory yields no files.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListEntries returns every entry name in dir, files and directories, sorted.
func ListEntries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Move renames src to dst, creating dst's directory. Moves across devices fall
// back to copy and remove. Move never replaces an existing dst.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move %s: %w", dst, fs.ErrExist)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		return copyAndRemove(src, dst)
	}
	return fmt.Errorf("failed to move %s: %w", src, err)
}

func copyAndRemove(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", src, err)
		}
		return os.RemoveAll(src)
	}

	in, err := os.Open(src) //nolint:gosec // src is a bucket entry
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm()) //nolint:gosec // dst is a bucket entry
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// freeName returns name, or name with ".<suffix>" inserted before the
// extension when name already exists in dir.
func freeName(dir, name, suffix string) string {
	if _, err := os.Lstat(filepath.Join(dir, name)); errors.Is(err, fs.ErrNotExist) {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := base + "." + suffix + ext
	for i := 2; ; i++ {
		if _, err := os.Lstat(filepath.Join(dir, candidate)); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s.%s-%d%s", base, suffix, i, ext)
	}
}
