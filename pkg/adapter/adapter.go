// Package adapter holds what staging database adapters share: short
// aliases for the core contract, a database/sql base to embed, params
// decoding and the registry that maps target.type to an implementation.
//
// Implementations live under pkg/adapters and register from init.
package adapter

import "github.com/leapstack-labs/leapingest/pkg/core"

type (
	// Adapter is core.Adapter.
	Adapter = core.Adapter
	// Config is core.AdapterConfig.
	Config = core.AdapterConfig
	// Column is core.Column.
	Column = core.Column
	// Metadata is core.TableMetadata.
	Metadata = core.TableMetadata
	// Rows is core.Rows.
	Rows = core.Rows
)
