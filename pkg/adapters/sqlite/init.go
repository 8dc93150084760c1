// Package sqlite provides the SQLite staging adapter, the default target.
//
// A blank import makes "sqlite" available as target.type:
//
//	import _ "github.com/leapstack-labs/leapingest/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
)

func init() {
	adapter.Register(DialectName, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
