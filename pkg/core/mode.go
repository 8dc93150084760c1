package core

import (
	"fmt"
	"strings"
)

// Mode selects which schema, table and transformation path apply to a run.
type Mode string

// Dataset modes.
const (
	ModeTrain   Mode = "train"
	ModePredict Mode = "predict"
)

// ParseMode parses a mode name. The long forms "training" and "prediction"
// are accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "train", "training":
		return ModeTrain, nil
	case "predict", "prediction":
		return ModePredict, nil
	default:
		return "", fmt.Errorf("%w: %q (expected train or predict)", ErrInvalidMode, s)
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeTrain || m == ModePredict
}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// DatabaseName returns the logical database name for the mode.
func (m Mode) DatabaseName() string {
	if m == ModePredict {
		return "prediction"
	}
	return "training"
}

// TableName returns the staging table name for the mode.
func (m Mode) TableName() string {
	return m.DatabaseName() + "_raw_data_t"
}

// SchemaName returns the base name of the schema definition file for the mode.
func (m Mode) SchemaName() string {
	return "schema_" + string(m)
}
