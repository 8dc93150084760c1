package core

import "strings"

// ColumnDef is one declared column of a dataset schema.
type ColumnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the expected shape of the files of one dataset mode.
// It is immutable once loaded for a run.
type Schema struct {
	Mode          Mode        `json:"mode"`
	Columns       []ColumnDef `json:"columns"`
	ExpectedCount int         `json:"expected_count"`
}

// ColumnNames returns the declared column names in schema order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the declared column with the given name.
// SQL identifiers are case-insensitive, so the comparison is too.
func (s *Schema) Lookup(name string) (ColumnDef, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDef{}, false
}
