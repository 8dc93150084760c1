package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectConfig_QuoteIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		dialect DialectConfig
		input   string
		want    string
	}{
		{"default double quotes", DialectConfig{}, "left", `"left"`},
		{"embedded quote escaped", DialectConfig{Identifiers: IdentifierConfig{Quote: `"`}}, `a"b`, `"a""b"`},
		{"brackets", DialectConfig{Identifiers: IdentifierConfig{Quote: "[", QuoteEnd: "]", Escape: "]]"}}, "a]b", "[a]]b]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.QuoteIdentifier(tt.input))
		})
	}
}

func TestDialectConfig_Placeholders(t *testing.T) {
	q := DialectConfig{Placeholder: PlaceholderQuestion}
	d := DialectConfig{Placeholder: PlaceholderDollar}

	assert.Equal(t, "?, ?, ?", q.Placeholders(3))
	assert.Equal(t, "$1, $2, $3", d.Placeholders(3))
	assert.Equal(t, "", q.Placeholders(0))
}

func TestDialectConfig_ColumnType(t *testing.T) {
	d := DialectConfig{TextType: "VARCHAR"}
	assert.Equal(t, "INTEGER", d.ColumnType("INTEGER"))
	assert.Equal(t, "VARCHAR", d.ColumnType(" "))
	assert.Equal(t, "TEXT", (&DialectConfig{}).ColumnType(""))
}

func TestSchema_Lookup(t *testing.T) {
	s := &Schema{Columns: []ColumnDef{{Name: "empid", Type: "INTEGER"}, {Name: "Salary", Type: "varchar"}}}
	assert.Equal(t, []string{"empid", "Salary"}, s.ColumnNames())

	c, ok := s.Lookup("salary")
	assert.True(t, ok)
	assert.Equal(t, "varchar", c.Type)

	_, ok = s.Lookup("left")
	assert.False(t, ok)
}
