package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SnapshotWriter writes the staged snapshot format: every field quoted,
// embedded quotes doubled, backslashes escaped with a backslash and
// records terminated by CRLF.
type SnapshotWriter struct {
	w   *bufio.Writer
	err error
}

// NewSnapshotWriter returns a SnapshotWriter writing to w.
func NewSnapshotWriter(w io.Writer) *SnapshotWriter {
	return &SnapshotWriter{w: bufio.NewWriter(w)}
}

var snapshotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `""`)

// Write writes one record.
func (s *SnapshotWriter) Write(record []string) error {
	if s.err != nil {
		return s.err
	}
	for i, field := range record {
		if i > 0 {
			s.writeString(",")
		}
		s.writeString(`"`)
		s.writeString(snapshotEscaper.Replace(field))
		s.writeString(`"`)
	}
	s.writeString("\r\n")
	return s.err
}

func (s *SnapshotWriter) writeString(v string) {
	if s.err == nil {
		_, s.err = s.w.WriteString(v)
	}
}

// Flush writes any buffered data to the underlying writer.
func (s *SnapshotWriter) Flush() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}

// WriteSnapshotFile writes header and rows to path in snapshot format, replacing any prior file.
func WriteSnapshotFile(path string, header []string, next func() ([]string, error)) (int, error) {
	var n int
	err := writeAtomic(path, func(w io.Writer) error {
		sw := NewSnapshotWriter(w)
		if err := sw.Write(header); err != nil {
			return err
		}
		for {
			rec, err := next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			if err := sw.Write(rec); err != nil {
				return err
			}
			n++
		}
		return sw.Flush()
	})
	return n, err
}

// ReadSnapshotFile reads a file written by SnapshotWriter.
func ReadSnapshotFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // snapshot path is derived from the bucket layout
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadSnapshot(f)
}

// ReadSnapshot parses snapshot formatted data.
func ReadSnapshot(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	for _, rec := range records {
		for i, v := range rec {
			rec[i] = unescapeBackslash(v)
		}
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

func unescapeBackslash(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var sb strings.Builder
	sb.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
		}
		sb.WriteByte(v[i])
	}
	return sb.String()
}
