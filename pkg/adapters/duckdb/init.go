// Package duckdb stages batches in an embedded DuckDB file.
//
// A blank import makes "duckdb" available as target.type:
//
//	import _ "github.com/leapstack-labs/leapingest/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
)

func init() {
	adapter.Register(DialectName, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
