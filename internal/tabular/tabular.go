// Package tabular reads and writes the delimited files that flow through
// the ingestion buckets.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sentinel is the literal token written in place of missing cells.
const Sentinel = "NULL"

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("file is empty")

// missingTokens are the cell values treated as missing.
var missingTokens = map[string]struct{}{
	"":     {},
	"NULL": {},
	"null": {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"-nan": {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"#N/A": {},
	"<NA>": {},
	"None": {},
}

// IsMissing reports whether a cell value counts as missing.
func IsMissing(v string) bool {
	_, ok := missingTokens[v]
	return ok
}

// Table is an in-memory delimited file: a header and string cells.
// Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// NumColumns returns the number of header columns.
func (t *Table) NumColumns() int {
	return len(t.Header)
}

// MissingCounts returns the number of missing cells per column.
func (t *Table) MissingCounts() []int {
	counts := make([]int, len(t.Header))
	for _, row := range t.Rows {
		for i, v := range row {
			if IsMissing(v) {
				counts[i]++
			}
		}
	}
	return counts
}

// FullyMissingColumns returns the names of columns where every value is missing.
// A file without data rows reports every column.
func (t *Table) FullyMissingColumns() []string {
	var out []string
	for i, n := range t.MissingCounts() {
		if n == len(t.Rows) {
			out = append(out, t.Header[i])
		}
	}
	return out
}

// ReadFile reads a comma separated file with a header row.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a bucket listing
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read parses comma separated data with a header row.
// Short rows are padded with empty cells; rows longer than the header are an error.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteFile writes the table as comma separated data, replacing path atomically.
func WriteFile(path string, t *Table) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

// writeAtomic writes through a temporary file in the target directory and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
