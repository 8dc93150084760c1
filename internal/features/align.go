package features

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type columnsFile struct {
	DataColumns []string `json:"data_columns" yaml:"data_columns"`
}

// LoadTrainingColumns reads the {"data_columns": [...]} file written after training.
func LoadTrainingColumns(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read training columns: %w", err)
	}
	var doc columnsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse training columns %s: %w", path, err)
	}
	if len(doc.DataColumns) == 0 {
		return nil, fmt.Errorf("training columns file %s has no data_columns", path)
	}
	return doc.DataColumns, nil
}

// SaveTrainingColumns writes the training feature order to path.
func SaveTrainingColumns(path string, columns []string) error {
	data, err := json.MarshalIndent(columnsFile{DataColumns: columns}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// Align returns a frame with exactly columns, in that order. Columns absent
// from f, and missing cells in the ones present, are zero.
func Align(f *Frame, columns []string) (*Frame, error) {
	out := NewFrame(f.Rows())
	for _, name := range columns {
		s, ok := f.Column(name)
		var aligned *Series
		switch {
		case !ok:
			aligned = NewNumeric(name, make([]float64, f.Rows()))
		case s.Kind == Text:
			aligned = s.clone()
			for i := range aligned.Str {
				if aligned.Null[i] {
					aligned.Str[i], aligned.Null[i] = "0", false
				}
			}
		default:
			aligned = s.clone()
			for i, v := range aligned.Num {
				if math.IsNaN(v) {
					aligned.Num[i] = 0
				}
			}
		}
		if err := out.Add(aligned); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Split separates the label column from the features.
func Split(f *Frame, label string) (*Frame, *Series, error) {
	y, ok := f.Column(label)
	if !ok {
		return nil, nil, fmt.Errorf("label column %q not found", label)
	}
	x, err := f.Drop(label)
	if err != nil {
		return nil, nil, err
	}
	return x, y.clone(), nil
}
