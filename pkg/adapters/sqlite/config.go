package sqlite

import (
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
)

// Params holds SQLite-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// BusyTimeout is the busy_timeout pragma in milliseconds.
	BusyTimeout int `mapstructure:"busy_timeout"`

	// JournalMode sets the journal_mode pragma (e.g., "wal", "delete").
	JournalMode string `mapstructure:"journal_mode"`

	// Pragmas holds additional pragmas applied on connect.
	Pragmas map[string]string `mapstructure:"pragmas"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if err := adapter.DecodeParams(DialectName, raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// dsn builds a modernc.org/sqlite connection string with _pragma parameters.
func (p *Params) dsn(path string) string {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)"
	if p.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_pragma=busy_timeout(%d)", p.BusyTimeout)
	}
	if p.JournalMode != "" {
		dsn += fmt.Sprintf("&_pragma=journal_mode(%s)", p.JournalMode)
	}
	for _, k := range slices.Sorted(maps.Keys(p.Pragmas)) {
		dsn += fmt.Sprintf("&_pragma=%s(%s)", k, p.Pragmas[k])
	}
	return dsn
}
