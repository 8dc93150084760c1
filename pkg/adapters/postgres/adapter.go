package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// DialectName is the target.type of this adapter.
const DialectName = "postgres"

// Dialect describes PostgreSQL quoting and $n placeholders.
var Dialect = &core.DialectConfig{
	Name:          DialectName,
	Identifiers:   core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	TextType:      "TEXT",
}

// Adapter stages batches in a PostgreSQL database.
type Adapter struct {
	adapter.BaseSQLAdapter
	dialect *core.DialectConfig
}

// New returns an unconnected adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		dialect:        Dialect,
	}
}

// Connect parses the target into a pgx config and opens a pool through
// the database/sql bridge. target.schema becomes both the search_path and
// the schema unqualified staging tables are looked up in.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := pgx.ParseConfig(connString(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres target: %w", err)
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", connCfg.Host),
		slog.Int("port", int(connCfg.Port)),
		slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.dialect = dialectFor(cfg.Schema)
	return nil
}

func dialectFor(schema string) *core.DialectConfig {
	if schema == "" {
		return Dialect
	}
	d := *Dialect
	d.DefaultSchema = schema
	return &d
}

// connString renders cfg as a keyword/value connection string.
// options.dsn, when set, is returned unchanged.
func connString(cfg adapter.Config) string {
	if dsn := cfg.Options["dsn"]; dsn != "" {
		return dsn
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.Options["sslmode"]
	if sslmode == "" {
		sslmode = "disable"
	}

	pairs := [][2]string{
		{"host", host},
		{"port", strconv.Itoa(port)},
		{"dbname", cfg.Database},
		{"sslmode", sslmode},
		{"user", cfg.Username},
		{"password", cfg.Password},
		{"search_path", cfg.Schema},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+quoteValue(kv[1]))
		}
	}
	return strings.Join(parts, " ")
}

// quoteValue single-quotes values libpq would otherwise split or misread.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, `'`, `\'`) + "'"
}

// TableExists looks the table up in information_schema.tables.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	return a.TableExistsCommon(ctx, table, a.dialect)
}

// GetTableMetadata reads the table's columns and row count.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, a.dialect)
}

// DialectConfig returns the dialect, with the target schema as default.
func (a *Adapter) DialectConfig() *core.DialectConfig { return a.dialect }

var _ adapter.Adapter = (*Adapter)(nil)
