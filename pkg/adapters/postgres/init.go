// Package postgres stages batches in a PostgreSQL database reached over pgx.
//
// A blank import makes "postgres" (and "postgresql") available as target.type:
//
//	import _ "github.com/leapstack-labs/leapingest/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
)

func init() {
	factory := func(logger *slog.Logger) adapter.Adapter { return New(logger) }
	adapter.Register(DialectName, factory)
	adapter.Register("postgresql", factory)
}
