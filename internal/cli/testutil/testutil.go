// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapingest/internal/cli/output"
)

// Training schema used by SetupTestProject.
const TrainSchema = `{
	"SampleFileName": "HR_Data_01012020_120000.csv",
	"ColName": {"empid": "INTEGER", "satisfaction": "REAL", "hours": "INTEGER", "salary": "TEXT", "left": "INTEGER"},
	"NumberofColumns": 5
}`

// Prediction schema used by SetupTestProject.
const PredictSchema = `{
	"SampleFileName": "HR_Data_01012020_120000.csv",
	"ColName": {"empid": "INTEGER", "satisfaction": "REAL", "hours": "INTEGER", "salary": "TEXT"},
	"NumberofColumns": 4
}`

// SetupTestProject creates a temporary project using the default layout:
// a leapingest.yaml, both schemas and one valid plus one rejected training file.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	files := map[string]string{
		"leapingest.yaml": "target:\n  type: sqlite\nfeatures:\n  neighbors: 2\n",
		filepath.Join("artifacts", "database", "schema_train.json"):   TrainSchema,
		filepath.Join("artifacts", "database", "schema_predict.json"): PredictSchema,
		filepath.Join("data", "training_data", "HR_Data_01012020_120000.csv"): "empid,satisfaction,hours,salary,left\n" +
			"1,0.5,160,low,1\n" +
			"2,,200,medium,0\n" +
			"3,0.9,180,high,0\n",
		filepath.Join("data", "training_data", "HR_Data_01012020_130000.csv"): "empid,satisfaction\n4,0.1\n",
	}

	for rel, content := range files {
		path := filepath.Join(tmpDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", rel, err)
		}
	}

	return tmpDir
}

// TestRenderer is a Renderer writing into buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a renderer in mode; isTTY simulates a terminal.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns what was written to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns what was written to stderr.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
