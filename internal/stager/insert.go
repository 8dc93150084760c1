package stager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/tabular"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// InsertReport lists the files committed by InsertRows.
type InsertReport struct {
	Files []string
	Rows  int
}

// InsertRows loads every sanitized file of the ledger into table, one
// transaction per file, in name order. A file that fails is rolled back,
// rejected, and ends the load with a StagingInsertError; files committed
// before it stay staged.
func (s *Stager) InsertRows(ctx context.Context, ledger *bucket.Ledger, table string) (*InsertReport, error) {
	report := &InsertReport{}
	err := s.withAdapter(ctx, func(adp core.Adapter) error {
		meta, err := adp.GetTableMetadata(ctx, table)
		if err != nil {
			return err
		}

		for _, f := range ledger.InState(core.FileStateSanitized) {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, insertErr := s.insertFile(ctx, adp, table, meta, f)
			if insertErr != nil {
				if err := ledger.Reject(ctx, f.Name, insertErr.Error()); err != nil {
					return fmt.Errorf("%w (reject failed: %w)", insertErr, err)
				}
				return insertErr
			}
			if err := ledger.MarkStaged(ctx, f.Name); err != nil {
				return err
			}
			report.Files = append(report.Files, f.Name)
			report.Rows += n
			s.logger.Debug("file staged", slog.String("file", f.Name), slog.Int("rows", n))
		}
		return nil
	})
	return report, err
}

// insertFile loads one file in its own transaction.
func (s *Stager) insertFile(ctx context.Context, adp core.Adapter, table string, meta *core.TableMetadata, f *core.FileRecord) (n int, err error) {
	fail := func(line int, cause error) error {
		return &core.StagingInsertError{Table: table, File: f.Name, Line: line, Err: cause}
	}

	tbl, err := tabular.ReadFile(f.Path)
	if err != nil {
		return 0, fail(0, err)
	}
	columns, err := targetColumns(tbl.Header, meta)
	if err != nil {
		return 0, fail(1, err)
	}

	d := adp.DialectConfig()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdentifier(c)
	}
	//nolint:gosec // identifiers are quoted by the dialect, values are bound
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTable(d, table), strings.Join(quoted, ", "), d.Placeholders(len(columns)))

	tx, err := adp.BeginTx(ctx)
	if err != nil {
		return 0, fail(0, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fail(0, err)
	}
	defer func() { _ = prepared.Close() }()

	args := make([]any, len(columns))
	for i, row := range tbl.Rows {
		for j, v := range row {
			args[j] = s.bindValue(v)
		}
		if _, err = prepared.ExecContext(ctx, args...); err != nil {
			// Line numbers count the header as line 1.
			return 0, fail(i+2, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fail(0, err)
	}
	return len(tbl.Rows), nil
}

// targetColumns maps a file header onto the table's columns. Every header
// name must match a table column, ignoring case.
func targetColumns(header []string, meta *core.TableMetadata) ([]string, error) {
	byName := make(map[string]string, len(meta.Columns))
	for _, c := range meta.Columns {
		byName[strings.ToLower(c.Name)] = c.Name
	}
	out := make([]string, len(header))
	for i, h := range header {
		name, ok := byName[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			return nil, fmt.Errorf("column %q is not in table %s", h, meta.Name)
		}
		out[i] = name
	}
	return out, nil
}

// bindValue binds every value as text, the sentinel included, unless the
// target asked for SQL NULL.
func (s *Stager) bindValue(v string) any {
	if s.sqlNull && v == tabular.Sentinel {
		return nil
	}
	return v
}
