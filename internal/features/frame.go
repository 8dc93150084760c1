// Package features turns the staged snapshot into model-ready feature frames.
package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapingest/internal/tabular"
)

// Kind is the inferred type of a Series.
type Kind int

// Series kinds.
const (
	Numeric Kind = iota
	Text
)

func (k Kind) String() string {
	if k == Text {
		return "text"
	}
	return "numeric"
}

// Series is one named column. Numeric series mark missing cells with NaN,
// text series with Null.
type Series struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
	Null []bool
}

// NewNumeric creates a numeric series.
func NewNumeric(name string, values []float64) *Series {
	return &Series{Name: name, Kind: Numeric, Num: values}
}

// NewText creates a text series. Cells recognised by tabular.IsMissing are null.
func NewText(name string, values []string) *Series {
	null := make([]bool, len(values))
	for i, v := range values {
		null[i] = tabular.IsMissing(v)
	}
	return &Series{Name: name, Kind: Text, Str: values, Null: null}
}

// Len returns the number of cells.
func (s *Series) Len() int {
	if s.Kind == Text {
		return len(s.Str)
	}
	return len(s.Num)
}

// IsMissing reports whether cell i is missing.
func (s *Series) IsMissing(i int) bool {
	if s.Kind == Text {
		return s.Null[i]
	}
	return math.IsNaN(s.Num[i])
}

// MissingCount returns the number of missing cells.
func (s *Series) MissingCount() int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if s.IsMissing(i) {
			n++
		}
	}
	return n
}

// Cell renders cell i for output. Missing cells are empty.
func (s *Series) Cell(i int) string {
	if s.IsMissing(i) {
		return ""
	}
	if s.Kind == Text {
		return s.Str[i]
	}
	return strconv.FormatFloat(s.Num[i], 'f', -1, 64)
}

func (s *Series) clone() *Series {
	c := &Series{Name: s.Name, Kind: s.Kind}
	if s.Kind == Text {
		c.Str = append([]string(nil), s.Str...)
		c.Null = append([]bool(nil), s.Null...)
	} else {
		c.Num = append([]float64(nil), s.Num...)
	}
	return c
}

// Frame is an ordered set of equally long series.
type Frame struct {
	cols  []*Series
	index map[string]int
	rows  int
}

// NewFrame creates an empty frame with a fixed row count.
func NewFrame(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

// Add appends a series. Names must be unique and lengths must match the frame.
func (f *Frame) Add(s *Series) error {
	if s.Len() != f.rows {
		return fmt.Errorf("column %q has %d rows, frame has %d", s.Name, s.Len(), f.rows)
	}
	if _, ok := f.index[s.Name]; ok {
		return fmt.Errorf("duplicate column %q", s.Name)
	}
	f.index[s.Name] = len(f.cols)
	f.cols = append(f.cols, s)
	return nil
}

// Rows returns the number of rows.
func (f *Frame) Rows() int { return f.rows }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, s := range f.cols {
		names[i] = s.Name
	}
	return names
}

// Series returns the columns in order.
func (f *Frame) Series() []*Series { return f.cols }

// Column returns the named series.
func (f *Frame) Column(name string) (*Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Drop returns a copy of f without the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := f.index[n]; !ok {
			return nil, fmt.Errorf("column %q not found", n)
		}
		drop[n] = true
	}
	out := NewFrame(f.rows)
	for _, s := range f.cols {
		if !drop[s.Name] {
			_ = out.Add(s.clone())
		}
	}
	return out, nil
}

// Concat returns the columns of f followed by the columns of other.
func (f *Frame) Concat(other *Frame) (*Frame, error) {
	if other.rows != f.rows {
		return nil, fmt.Errorf("cannot concatenate %d rows with %d rows", f.rows, other.rows)
	}
	out := NewFrame(f.rows)
	for _, s := range append(append([]*Series(nil), f.cols...), other.cols...) {
		if err := out.Add(s.clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FromTable builds a frame from string cells. A column whose present cells
// all parse as numbers becomes numeric, otherwise text. A column with no
// present cells is numeric.
func FromTable(t *tabular.Table) *Frame {
	f := NewFrame(len(t.Rows))
	for j, name := range t.Header {
		raw := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			raw[i] = row[j]
		}
		if nums, ok := parseNumeric(raw); ok {
			_ = f.Add(NewNumeric(name, nums))
		} else {
			_ = f.Add(NewText(name, raw))
		}
	}
	return f
}

func parseNumeric(raw []string) ([]float64, bool) {
	out := make([]float64, len(raw))
	for i, v := range raw {
		if tabular.IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// ReadSnapshot loads a snapshot file into a frame.
func ReadSnapshot(path string) (*Frame, error) {
	t, err := tabular.ReadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	return FromTable(t), nil
}

// Table renders the frame as string cells.
func (f *Frame) Table() *tabular.Table {
	t := &tabular.Table{Header: f.Columns(), Rows: make([][]string, f.rows)}
	for i := range t.Rows {
		row := make([]string, len(f.cols))
		for j, s := range f.cols {
			row[j] = s.Cell(i)
		}
		t.Rows[i] = row
	}
	return t
}

// WriteCSV writes the frame to path as comma separated data.
func (f *Frame) WriteCSV(path string) error {
	return tabular.WriteFile(path, f.Table())
}
