package engine

// Staging targets available to every engine.
import (
	_ "github.com/leapstack-labs/leapingest/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapingest/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapingest/pkg/adapters/sqlite"
)
