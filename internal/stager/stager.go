// Package stager owns the staging tables: it creates and evolves them,
// loads sanitized files into them and exports their snapshot.
package stager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Connector opens a connected adapter for one logical operation.
// The stager closes it when the operation ends.
type Connector func(ctx context.Context) (core.Adapter, error)

// NullSentinelOption is the target option selecting how the missing-value
// sentinel is stored: "text" (the default) inserts the literal string NULL
// like every other value, "sql" inserts SQL NULL so typed columns on
// targets such as postgres accept it.
const NullSentinelOption = "null_sentinel"

// SentinelAsNull reports whether target options select SQL NULL for the sentinel.
func SentinelAsNull(options map[string]string) bool {
	return strings.EqualFold(strings.TrimSpace(options[NullSentinelOption]), "sql")
}

// Stager is the sole writer of the staging tables.
type Stager struct {
	connect Connector
	store   core.Store
	logger  *slog.Logger
	sqlNull bool
}

// New creates a Stager. store may be nil, in which case schema changes are not logged.
func New(connect Connector, store core.Store, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Stager{connect: connect, store: store, logger: logger}
}

// BindSentinelAsNull makes InsertRows store the sentinel as SQL NULL.
func (s *Stager) BindSentinelAsNull(on bool) *Stager {
	s.sqlNull = on
	return s
}

// withAdapter runs fn with a freshly connected adapter.
func (s *Stager) withAdapter(ctx context.Context, fn func(core.Adapter) error) (err error) {
	adp, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to staging database: %w", err)
	}
	defer func() {
		if cerr := adp.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close staging database: %w", cerr)
		}
	}()
	return fn(adp)
}

// CreateTable makes table match schema. Prediction runs drop the table first.
// A missing table is created with every declared column in schema order.
// An existing table only gains the declared columns it lacks.
func (s *Stager) CreateTable(ctx context.Context, rc *core.RunContext, table string, schema *core.Schema) error {
	return s.withAdapter(ctx, func(adp core.Adapter) error {
		d := adp.DialectConfig()
		qt := quoteTable(d, table)

		version, err := s.nextVersion(ctx, table)
		if err != nil {
			return err
		}
		var changes []*core.SchemaChange

		exists, err := adp.TableExists(ctx, table)
		if err != nil {
			return err
		}

		if rc.Mode == core.ModePredict && exists {
			if err := adp.Exec(ctx, "DROP TABLE "+qt); err != nil {
				return fmt.Errorf("failed to drop %s: %w", table, err)
			}
			s.logger.Info("staging table dropped", slog.String("table", table))
			changes = append(changes, &core.SchemaChange{Table: table, Action: core.SchemaActionDrop})
			exists = false
		}

		if !exists {
			defs := make([]string, len(schema.Columns))
			for i, c := range schema.Columns {
				typ := d.ColumnType(c.Type)
				defs[i] = d.QuoteIdentifier(c.Name) + " " + typ
				changes = append(changes, &core.SchemaChange{
					Table: table, Action: core.SchemaActionCreate, Column: c.Name, Type: typ, Position: i,
				})
			}
			ddl := fmt.Sprintf("CREATE TABLE %s (%s)", qt, strings.Join(defs, ", "))
			if err := adp.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("failed to create %s: %w", table, err)
			}
			s.logger.Info("staging table created", slog.String("table", table), slog.Int("columns", len(defs)))
			return s.record(ctx, rc, version, changes)
		}

		meta, err := adp.GetTableMetadata(ctx, table)
		if err != nil {
			return err
		}
		present := make(map[string]bool, len(meta.Columns))
		for _, c := range meta.Columns {
			present[strings.ToLower(c.Name)] = true
		}

		position := len(meta.Columns)
		for _, c := range schema.Columns {
			if present[strings.ToLower(c.Name)] {
				continue
			}
			typ := d.ColumnType(c.Type)
			ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", qt, d.QuoteIdentifier(c.Name), typ)
			if err := adp.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("failed to add column %s to %s: %w", c.Name, table, err)
			}
			s.logger.Info("staging column added", slog.String("table", table), slog.String("column", c.Name))
			changes = append(changes, &core.SchemaChange{
				Table: table, Action: core.SchemaActionAddColumn, Column: c.Name, Type: typ, Position: position,
			})
			position++
		}
		return s.record(ctx, rc, version, changes)
	})
}

func (s *Stager) nextVersion(ctx context.Context, table string) (int, error) {
	if s.store == nil {
		return 1, nil
	}
	v, err := s.store.CurrentSchemaVersion(ctx, table)
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}

// record appends the changes of one CreateTable call under a single version.
func (s *Stager) record(ctx context.Context, rc *core.RunContext, version int, changes []*core.SchemaChange) error {
	if s.store == nil || len(changes) == 0 {
		return nil
	}
	for _, ch := range changes {
		ch.Version = version
		ch.RunID = rc.ID
		if err := s.store.RecordSchemaChange(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns the live column metadata of a table in storage order.
func (s *Stager) Columns(ctx context.Context, table string) ([]core.Column, error) {
	var cols []core.Column
	err := s.withAdapter(ctx, func(adp core.Adapter) error {
		meta, err := adp.GetTableMetadata(ctx, table)
		if err != nil {
			return err
		}
		cols = meta.Columns
		return nil
	})
	return cols, err
}

// quoteTable quotes each part of a possibly schema-qualified table name.
func quoteTable(d *core.DialectConfig, table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
