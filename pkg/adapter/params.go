package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
)

// MemoryPath is the path that selects an in-memory database.
const MemoryPath = ":memory:"

// DecodeParams decodes target.params into out, a pointer to an adapter's
// params struct. Scalar values are coerced to the field types, so
// "5000" fills an int field.
func DecodeParams(kind string, raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid %s params: %w", kind, err)
	}
	return nil
}

// FilePath returns the database file for cfg, creating its parent
// directory. An empty path selects an in-memory database.
func FilePath(cfg Config) (string, error) {
	if cfg.Path == "" || cfg.Path == MemoryPath {
		return MemoryPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return cfg.Path, nil
}

// Open opens a database/sql handle and pings it. On success the handle
// and cfg are stored on b; on failure b is left disconnected.
func (b *BaseSQLAdapter) Open(ctx context.Context, driver, dsn string, cfg Config) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	b.DB = db
	b.Cfg = cfg
	return nil
}
