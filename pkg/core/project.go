package core

// TargetConfig holds staging database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres

	// File-based databases (SQLite, DuckDB). For SQLite and DuckDB an empty
	// Database means one file per mode under the database directory.
	Database string `koanf:"database"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB settings, SQLite pragmas)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
// path is the resolved database file for file-based targets.
func (t *TargetConfig) AdapterConfig(path string) AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// FileBased reports whether the target stores each mode in a local database file.
func (t *TargetConfig) FileBased() bool {
	return t.Type == "" || t.Type == "sqlite" || t.Type == "duckdb"
}
