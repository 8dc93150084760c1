// Package sanitize rewrites accepted files so every missing cell holds the
// sentinel token.
package sanitize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/tabular"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// FillMissingFile rewrites one file in place and returns the number of cells replaced.
// Cells already holding the sentinel are left alone, so the rewrite is idempotent.
func FillMissingFile(path string) (int, error) {
	tbl, err := tabular.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n := FillMissing(tbl)
	if err := tabular.WriteFile(path, tbl); err != nil {
		return n, err
	}
	return n, nil
}

// FillMissing replaces missing cells of t with the sentinel and returns the count.
func FillMissing(t *tabular.Table) int {
	var n int
	for _, row := range t.Rows {
		for i, v := range row {
			if tabular.IsMissing(v) && v != tabular.Sentinel {
				row[i] = tabular.Sentinel
				n++
			}
		}
	}
	return n
}

// Sanitizer fills missing cells in every accepted source file of a run.
type Sanitizer struct {
	ledger *bucket.Ledger
	logger *slog.Logger
}

// New creates a Sanitizer over the files tracked by ledger.
func New(ledger *bucket.Ledger, logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sanitizer{ledger: ledger, logger: logger}
}

// FillMissing rewrites each accepted file and marks it sanitized.
func (s *Sanitizer) FillMissing(ctx context.Context) error {
	for _, f := range s.ledger.InState(core.FileStateSource) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := FillMissingFile(f.Path)
		if err != nil {
			return fmt.Errorf("failed to sanitize %s: %w", f.Name, err)
		}
		if err := s.ledger.MarkSanitized(ctx, f.Name); err != nil {
			return err
		}
		s.logger.Debug("file sanitized", slog.String("file", f.Name), slog.Int("cells", n))
	}
	return nil
}
