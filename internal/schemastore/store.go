// Package schemastore loads the per-mode dataset schema definitions.
//
// A schema file holds the declared columns in order and the expected column count:
//
//	{"ColName": {"empid": "INTEGER", "salary": "varchar"}, "NumberofColumns": 2}
//
// Files named schema_<mode>.json are read first, then .yaml and .yml.
package schemastore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Keys of the schema document.
const (
	KeyColumns = "ColName"
	KeyCount   = "NumberofColumns"
)

var extensions = []string{".json", ".yaml", ".yml"}

// typePattern accepts SQL type names such as INTEGER, varchar, DECIMAL(10, 2).
var typePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\(\s*\d+\s*(,\s*\d+\s*)?\))?$`)

// Store reads schema definitions from a directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the schema file used for mode, or the .json path when none exists.
func (s *Store) Path(mode core.Mode) string {
	for _, ext := range extensions {
		p := filepath.Join(s.dir, mode.SchemaName()+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(s.dir, mode.SchemaName()+".json")
}

// Load reads the schema for mode.
func (s *Store) Load(mode core.Mode) (*core.Schema, error) {
	path := s.Path(mode)

	data, err := os.ReadFile(path) //nolint:gosec // path is built from the configured schema directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &core.SchemaNotFoundError{Mode: mode, Path: path, Err: err}
	}
	if err != nil {
		return nil, &core.SchemaCorruptError{Mode: mode, Path: path, Reason: "unreadable", Err: err}
	}

	var doc *document
	if filepath.Ext(path) == ".json" {
		doc, err = decodeJSON(data)
	} else {
		doc, err = decodeYAML(data)
	}
	if err != nil {
		return nil, &core.SchemaCorruptError{Mode: mode, Path: path, Reason: "malformed document", Err: err}
	}

	schema, reason := doc.schema(mode)
	if reason != "" {
		return nil, &core.SchemaCorruptError{Mode: mode, Path: path, Reason: reason}
	}

	s.logger.Debug("schema loaded",
		slog.String("mode", mode.String()),
		slog.String("path", path),
		slog.Int("columns", schema.ExpectedCount))
	return schema, nil
}

// document is the decoded schema file before validation.
type document struct {
	columns    []core.ColumnDef
	hasColumns bool
	count      int
	hasCount   bool
}

func (d *document) schema(mode core.Mode) (*core.Schema, string) {
	switch {
	case !d.hasColumns:
		return nil, "missing " + KeyColumns
	case !d.hasCount:
		return nil, "missing " + KeyCount
	case len(d.columns) == 0:
		return nil, KeyColumns + " is empty"
	case d.count <= 0:
		return nil, KeyCount + " must be positive"
	case d.count != len(d.columns):
		return nil, fmt.Sprintf("%s is %d but %s declares %d columns", KeyCount, d.count, KeyColumns, len(d.columns))
	}

	seen := make(map[string]bool, len(d.columns))
	for _, c := range d.columns {
		key := strings.ToLower(c.Name)
		if strings.TrimSpace(c.Name) == "" {
			return nil, "empty column name"
		}
		if seen[key] {
			return nil, fmt.Sprintf("duplicate column %q", c.Name)
		}
		seen[key] = true
		if !typePattern.MatchString(strings.TrimSpace(c.Type)) {
			return nil, fmt.Sprintf("invalid type %q for column %q", c.Type, c.Name)
		}
	}

	return &core.Schema{Mode: mode, Columns: d.columns, ExpectedCount: d.count}, ""
}

// decodeJSON walks the token stream so that column order is preserved.
func decodeJSON(data []byte) (*document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	doc := &document{}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case KeyColumns:
			doc.hasColumns = true
			if doc.columns, err = decodeJSONColumns(dec); err != nil {
				return nil, err
			}
		case KeyCount:
			doc.hasCount = true
			var n json.Number
			if err := dec.Decode(&n); err != nil {
				return nil, fmt.Errorf("%s: %w", KeyCount, err)
			}
			v, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer: %w", KeyCount, err)
			}
			doc.count = int(v)
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after schema document")
	}
	return doc, nil
}

func decodeJSONColumns(dec *json.Decoder) ([]core.ColumnDef, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%s must be an object: %w", KeyColumns, err)
	}
	var cols []core.ColumnDef
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		typ, err := stringToken(dec)
		if err != nil {
			return nil, fmt.Errorf("column %q: type must be a string", name)
		}
		cols = append(cols, core.ColumnDef{Name: name, Type: typ})
	}
	return cols, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}

// decodeYAML reads the mapping node directly to keep key order.
func decodeYAML(data []byte) (*document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema must be a mapping")
	}

	doc := &document{}
	m := root.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i].Value, m.Content[i+1]
		switch key {
		case KeyColumns:
			doc.hasColumns = true
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%s must be a mapping", KeyColumns)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				if val.Content[j+1].Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("column %q: type must be a string", val.Content[j].Value)
				}
				doc.columns = append(doc.columns, core.ColumnDef{
					Name: val.Content[j].Value,
					Type: val.Content[j+1].Value,
				})
			}
		case KeyCount:
			doc.hasCount = true
			if err := val.Decode(&doc.count); err != nil {
				return nil, fmt.Errorf("%s must be an integer: %w", KeyCount, err)
			}
		}
	}
	return doc, nil
}
