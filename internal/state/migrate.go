package state

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// newMigrationProvider builds a goose provider over the embedded ledger
// migrations. Providers keep no package-level state, so concurrent stores
// can migrate independently.
func newMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, db, fsys)
}

// Migrate applies every pending ledger migration.
func (s *SQLiteStore) Migrate() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	p, err := newMigrationProvider(s.db)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	results, err := p.Up(context.Background())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Debug("applied ledger migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// GetMigrationVersion returns the highest applied ledger migration.
func (s *SQLiteStore) GetMigrationVersion() (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	p, err := newMigrationProvider(s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}
	return p.GetDBVersion(context.Background())
}
