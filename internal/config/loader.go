package config

import (
	"os"
	"path/filepath"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "leapingest.yaml"
	ConfigFileNameAlt = "leapingest.yml"
)

// FindConfigFile returns the config file in dir, or "" if there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir, at most maxLevels directories,
// to the first directory holding a config file. It returns "" if none is found.
func FindProjectRoot(startDir string, maxLevels int) string {
	dir := startDir
	for i := 0; i < maxLevels; i++ {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

// ResolvePaths makes every relative path absolute against root.
func (c *Config) ResolvePaths(root string) {
	c.ProjectRoot = root
	for _, p := range []*string{
		&c.TrainingDataDir, &c.PredictionDataDir, &c.SourceDir,
		&c.SchemaDir, &c.DatabaseDir, &c.StatePath,
		&c.Features.ColumnsFile, &c.Models.Dir,
	} {
		*p = resolve(*p, root)
	}
	if c.Target != nil && c.Target.FileBased() && c.Target.Database != ":memory:" {
		c.Target.Database = resolve(c.Target.Database, root)
	}
}

func resolve(path, root string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
