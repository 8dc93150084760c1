// Package validate checks source files against the dataset schema and
// isolates failing files in the rejects bucket.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/tabular"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Rejection describes one file moved to the rejects bucket.
type Rejection struct {
	File   string
	Reason string
	Err    error
}

// Report summarizes one validation pass.
type Report struct {
	Checked  int
	Accepted []string
	Rejected []Rejection
}

// IOErrors joins the read failures of rejected files, or returns nil.
func (r *Report) IOErrors() error {
	var errs []error
	for _, rej := range r.Rejected {
		if rej.Err != nil {
			errs = append(errs, rej.Err)
		}
	}
	return errors.Join(errs...)
}

// Validator runs the file checks of a run.
type Validator struct {
	ledger *bucket.Ledger
	logger *slog.Logger
}

// New creates a Validator over the files tracked by ledger.
func New(ledger *bucket.Ledger, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{ledger: ledger, logger: logger}
}

// CheckColumnCount rejects every source file whose header does not have
// exactly expected columns. Unreadable files are rejected as well.
func (v *Validator) CheckColumnCount(ctx context.Context, expected int) (*Report, error) {
	return v.check(ctx, "column count", func(t *tabular.Table) string {
		if n := t.NumColumns(); n != expected {
			return fmt.Sprintf("expected %d columns, found %d", expected, n)
		}
		return ""
	})
}

// CheckMissingColumns rejects every remaining source file that has a column
// with no values at all.
func (v *Validator) CheckMissingColumns(ctx context.Context) (*Report, error) {
	return v.check(ctx, "missing values", func(t *tabular.Table) string {
		if cols := t.FullyMissingColumns(); len(cols) > 0 {
			return "columns with no values: " + strings.Join(cols, ", ")
		}
		return ""
	})
}

// check applies rule to every file still in the source state, in name order.
func (v *Validator) check(ctx context.Context, name string, rule func(*tabular.Table) string) (*Report, error) {
	report := &Report{}
	for _, f := range v.ledger.InState(core.FileStateSource) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		var (
			reason string
			ioErr  error
		)
		tbl, err := tabular.ReadFile(f.Path)
		if err != nil {
			ioErr = &core.ValidationIOError{File: f.Name, Err: err}
			reason = ioErr.Error()
		} else {
			reason = rule(tbl)
		}

		if reason == "" {
			report.Accepted = append(report.Accepted, f.Name)
			continue
		}

		if ioErr != nil {
			v.logger.Warn("unreadable file", slog.String("check", name), slog.String("file", f.Name), slog.Any("error", ioErr))
		}
		if err := v.ledger.Reject(ctx, f.Name, reason); err != nil {
			return report, err
		}
		report.Rejected = append(report.Rejected, Rejection{File: f.Name, Reason: reason, Err: ioErr})
	}

	v.logger.Info("validation check complete",
		slog.String("check", name),
		slog.Int("checked", report.Checked),
		slog.Int("rejected", len(report.Rejected)))
	return report, nil
}
