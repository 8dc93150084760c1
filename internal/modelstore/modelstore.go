// Package modelstore persists trained model artifacts by name and resolves
// the artifact that serves a cluster.
package modelstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Extension is the artifact file extension.
const Extension = ".sav"

// Lookup selects how Resolve matches a cluster id against model names.
type Lookup string

// Lookup strategies.
const (
	// LookupExact matches names whose final "_" separated token equals the cluster id.
	LookupExact Lookup = "exact"
	// LookupSubstring matches names containing the cluster id; the last
	// match in sorted order wins.
	LookupSubstring Lookup = "substring"
)

// ParseLookup validates a lookup name. Empty means substring.
func ParseLookup(s string) (Lookup, error) {
	switch Lookup(s) {
	case "", LookupSubstring:
		return LookupSubstring, nil
	case LookupExact:
		return LookupExact, nil
	default:
		return "", fmt.Errorf("unknown model lookup %q (expected exact or substring)", s)
	}
}

// Store keeps one directory per model name under Dir.
type Store struct {
	dir    string
	lookup Lookup
	logger *slog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, lookup Lookup, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if lookup == "" {
		lookup = LookupSubstring
	}
	return &Store{dir: dir, lookup: lookup, logger: logger}
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Path returns the artifact path of a model name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name, name+Extension)
}

// Save writes artifact as <dir>/<name>/<name>.sav, replacing any previous
// artifact of the same name. Other models are left alone.
func (s *Store) Save(name string, artifact []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	modelDir := filepath.Join(s.dir, name)
	if err := os.RemoveAll(modelDir); err != nil {
		return fmt.Errorf("failed to clear model %s: %w", name, err)
	}
	if err := os.MkdirAll(modelDir, 0o750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(s.Path(name), artifact, 0o600); err != nil {
		return fmt.Errorf("failed to write model %s: %w", name, err)
	}
	s.logger.Info("model saved", slog.String("model", name), slog.Int("bytes", len(artifact)))
	return nil
}

// Load reads the artifact of a model name.
func (s *Store) Load(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrModelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", name, err)
	}
	s.logger.Debug("model loaded", slog.String("model", name))
	return data, nil
}

// List returns the stored model names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve returns the model name serving clusterID.
func (s *Store) Resolve(clusterID string) (string, error) {
	names, err := s.List()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, name := range names {
		if s.matches(name, clusterID) {
			matches = append(matches, name)
		}
	}

	switch {
	case len(matches) == 0:
		return "", fmt.Errorf("%w: no model for cluster %s", core.ErrModelNotFound, clusterID)
	case len(matches) == 1:
		return matches[0], nil
	case s.lookup == LookupSubstring:
		s.logger.Warn("several models match cluster, using the last",
			slog.String("cluster", clusterID), slog.Any("matches", matches))
		return matches[len(matches)-1], nil
	default:
		return "", fmt.Errorf("%w: cluster %s matches %s", core.ErrAmbiguousModel, clusterID, strings.Join(matches, ", "))
	}
}

func (s *Store) matches(name, clusterID string) bool {
	if s.lookup == LookupSubstring {
		return strings.Contains(name, clusterID)
	}
	i := strings.LastIndex(name, "_")
	return name[i+1:] == clusterID
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid model name %q", name)
	}
	return nil
}
