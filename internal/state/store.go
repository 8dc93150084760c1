// Package state provides the run ledger backed by SQLite.
// It tracks runs, per-file bucket transitions and staging table schema versions.
package state

import (
	"time"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Compile-time check that SQLiteStore satisfies core.Store.
var _ core.Store = (*SQLiteStore)(nil)

// timeLayout is the textual timestamp format stored in TEXT columns.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
