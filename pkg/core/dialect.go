package core

import (
	"strconv"
	"strings"
)

// DialectConfig holds the static configuration for a SQL dialect.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "sqlite", "duckdb", "postgres")
	Name string

	// Identifiers defines quoting rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for SQLite and DuckDB, "public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// TextType is the column type used when a declared type is empty
	TextType string
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence for an embedded end quote: "", ``, ]]
}

// QuoteIdentifier quotes a table or column name for use in generated SQL.
func (d *DialectConfig) QuoteIdentifier(name string) string {
	q, end, esc := d.Identifiers.Quote, d.Identifiers.QuoteEnd, d.Identifiers.Escape
	if q == "" {
		q, end, esc = `"`, `"`, `""`
	}
	if end == "" {
		end = q
	}
	if esc == "" {
		esc = end + end
	}
	return q + strings.ReplaceAll(name, end, esc) + end
}

// Bind returns the i-th (1-based) bind parameter.
func (d *DialectConfig) Bind(i int) string {
	if d.Placeholder == PlaceholderDollar {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// Placeholders returns n comma separated bind parameters.
func (d *DialectConfig) Placeholders(n int) string {
	binds := make([]string, n)
	for i := range binds {
		binds[i] = d.Bind(i + 1)
	}
	return strings.Join(binds, ", ")
}

// ColumnType returns the declared type, falling back to the dialect's text type.
func (d *DialectConfig) ColumnType(declared string) string {
	if strings.TrimSpace(declared) != "" {
		return declared
	}
	if d.TextType != "" {
		return d.TextType
	}
	return "TEXT"
}
