package core

import (
	"context"
	"database/sql"
)

// Adapter is a staging database. The pipeline creates and evolves one
// text-typed table per mode through it and inserts each accepted file
// inside its own transaction.
type Adapter interface {
	Connect(ctx context.Context, cfg AdapterConfig) error
	Close() error

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) error
	// Query runs a statement and hands the rows to the caller, who must
	// close them and check Err.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)

	// TableExists accepts "name" or "schema.name".
	TableExists(ctx context.Context, table string) (bool, error)
	// GetTableMetadata returns columns in ordinal order and wraps
	// ErrTableNotFound when the table has none.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	BeginTx(ctx context.Context) (*sql.Tx, error)

	DialectConfig() *DialectConfig
}

// AdapterConfig is the resolved target block of leapingest.yaml.
// File based adapters use Path; server based adapters use the network
// fields or Options["dsn"].
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	// Params is decoded by each adapter into its own params struct.
	Params map[string]any
}

// Column is one column of a staging table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Position   int
}

// TableMetadata describes a staging table as found in the catalog.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// ColumnNames returns the column names in ordinal order.
func (m *TableMetadata) ColumnNames() []string {
	names := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Rows is the result of Adapter.Query.
type Rows struct {
	*sql.Rows
}
