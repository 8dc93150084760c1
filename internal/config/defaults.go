package config

import "github.com/leapstack-labs/leapingest/pkg/core"

// Default configuration values.
const (
	DefaultTrainingDataDir   = "data/training_data"
	DefaultPredictionDataDir = "data/prediction_data"
	DefaultSchemaDir         = "artifacts/database"
	DefaultDatabaseDir       = "artifacts/database"
	DefaultStateFile         = ".leapingest/state.db"
	DefaultTargetType        = "sqlite"
	DefaultLabel             = "left"
	DefaultColumnsFile       = "artifacts/columns.json"
	DefaultNeighbors         = 3
	DefaultModelsDir         = "artifacts/models"
	DefaultModelLookup       = "substring"
	DefaultServerAddr        = "127.0.0.1:8765"
	DefaultOutput            = "auto" // TTY=text, non-TTY=markdown
	DefaultLogFormat         = "text"
	DefaultLogLevel          = "info"
)

// DefaultDropColumns are removed from training data before encoding.
var DefaultDropColumns = []string{"empid"}

// Defaults returns the default values keyed by their config keys.
func Defaults() map[string]any {
	return map[string]any{
		"training_data_dir":             DefaultTrainingDataDir,
		"prediction_data_dir":           DefaultPredictionDataDir,
		"schema_dir":                    DefaultSchemaDir,
		"database_dir":                  DefaultDatabaseDir,
		"state_path":                    DefaultStateFile,
		"features.label":                DefaultLabel,
		"features.drop_columns":         append([]string(nil), DefaultDropColumns...),
		"features.predict_drop_columns": []string{},
		"features.columns_file":         DefaultColumnsFile,
		"features.neighbors":            DefaultNeighbors,
		"features.null_report":          true,
		"models.dir":                    DefaultModelsDir,
		"models.lookup":                 DefaultModelLookup,
		"server.addr":                   DefaultServerAddr,
		"server.watch":                  true,
		"verbose":                       false,
		"output":                        DefaultOutput,
		"log_format":                    DefaultLogFormat,
		"log_level":                     DefaultLogLevel,
	}
}

// ApplyTargetDefaults fills type specific defaults.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}
