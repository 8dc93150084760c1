package features

import (
	"strconv"

	"github.com/leapstack-labs/leapingest/internal/tabular"
)

// MissingCount is the number of missing cells in one column.
type MissingCount struct {
	Column string
	Count  int
}

// HasMissing reports whether any cell of f is missing.
func HasMissing(f *Frame) bool {
	for _, s := range f.Series() {
		for i := 0; i < s.Len(); i++ {
			if s.IsMissing(i) {
				return true
			}
		}
	}
	return false
}

// MissingCounts returns the missing cell count of every column, in column order.
func MissingCounts(f *Frame) []MissingCount {
	out := make([]MissingCount, 0, len(f.Series()))
	for _, s := range f.Series() {
		out = append(out, MissingCount{Column: s.Name, Count: s.MissingCount()})
	}
	return out
}

// WriteNullReport writes counts to path with the header "columns,missing values count".
func WriteNullReport(path string, counts []MissingCount) error {
	t := &tabular.Table{Header: []string{"columns", "missing values count"}}
	for _, c := range counts {
		t.Rows = append(t.Rows, []string{c.Column, strconv.Itoa(c.Count)})
	}
	return tabular.WriteFile(path, t)
}
