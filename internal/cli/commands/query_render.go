package commands

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// resultSet is a fully read query result with rows in column order.
type resultSet struct {
	columns []string
	rows    [][]any
}

func readResultSet(rows *sql.Rows) (*resultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &resultSet{columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.rows = append(rs.rows, vals)
	}
	return rs, rows.Err()
}

// cells formats row i for text output.
func (rs *resultSet) cells(i int) []string {
	out := make([]string, len(rs.columns))
	for j, v := range rs.rows[i] {
		out[j] = formatValue(v)
	}
	return out
}

func renderResults(w io.Writer, rows *sql.Rows, format string) error {
	rs, err := readResultSet(rows)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return rs.writeJSON(w)
	case "csv":
		return rs.writeCSV(w)
	case "md", "markdown":
		return rs.writeMarkdown(w)
	default:
		return rs.writeTable(w)
	}
}

func (rs *resultSet) writeTable(w io.Writer) error {
	if len(rs.rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toRow(rs.columns))
	for i := range rs.rows {
		t.AppendRow(toRow(rs.cells(i)))
	}
	t.Render()
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rs.rows))
	return err
}

func (rs *resultSet) writeJSON(w io.Writer) error {
	records := make([]map[string]any, len(rs.rows))
	for i, row := range rs.rows {
		rec := make(map[string]any, len(rs.columns))
		for j, col := range rs.columns {
			rec[col] = row[j]
		}
		records[i] = rec
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func (rs *resultSet) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.columns); err != nil {
		return err
	}
	for i := range rs.rows {
		if err := cw.Write(rs.cells(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (rs *resultSet) writeMarkdown(w io.Writer) error {
	if len(rs.rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}
	line := func(cells []string) string {
		return "| " + strings.Join(cells, " | ") + " |\n"
	}
	var b strings.Builder
	b.WriteString(line(rs.columns))
	sep := make([]string, len(rs.columns))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString(line(sep))
	for i := range rs.rows {
		cells := rs.cells(i)
		for j, c := range cells {
			cells[j] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString(line(cells))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// catalogQuery lists user tables and views. SQLite and DuckDB both expose sqlite_master.
const catalogQuery = `
	SELECT name, type
	FROM sqlite_master
	WHERE type IN ('table', 'view')
	AND name NOT LIKE 'sqlite_%'
	AND name NOT LIKE 'goose_%'
	ORDER BY type DESC, name`

func listTablesFromDB(ctx context.Context, w io.Writer, q querier, format string) error {
	rows, err := q.QueryContext(ctx, catalogQuery)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return renderResults(w, rows, format)
}

type columnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	PK       bool   `json:"pk"`
}

type objectSchema struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Columns []columnInfo `json:"columns"`
}

func showSchemaFromDB(ctx context.Context, w io.Writer, q querier, name, format string) error {
	obj, err := describeObject(ctx, q, name)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(obj)
	}

	kind := "Table"
	if obj.Type == "view" {
		kind = "View"
	}
	_, _ = fmt.Fprintf(w, "%s: %s\n", kind, obj.Name)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Default"})
	for _, c := range obj.Columns {
		nullable, dflt := "YES", c.Default
		if !c.Nullable {
			nullable = "NO"
		}
		if c.PK {
			dflt = strings.TrimSpace(dflt + " (primary key)")
		}
		t.AppendRow(table.Row{c.Name, c.Type, nullable, dflt})
	}
	t.Render()
	return nil
}

// describeObject reads the columns of a table or view with PRAGMA table_info.
func describeObject(ctx context.Context, q querier, name string) (*objectSchema, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	obj := &objectSchema{Name: name, Type: "table"}
	for rows.Next() {
		var (
			cid     int
			c       columnInfo
			notNull bool
			dflt    sql.NullString
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &dflt, &c.PK); err != nil {
			return nil, err
		}
		c.Nullable = !notNull
		c.Default = dflt.String
		obj.Columns = append(obj.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(obj.Columns) == 0 {
		return nil, fmt.Errorf("table or view %q not found", name)
	}

	typeRows, err := q.QueryContext(ctx,
		`SELECT type FROM sqlite_master WHERE name = ? AND type IN ('table', 'view')`, name)
	if err != nil {
		return obj, nil
	}
	defer func() { _ = typeRows.Close() }()
	if typeRows.Next() {
		_ = typeRows.Scan(&obj.Type)
	}
	return obj, nil
}
