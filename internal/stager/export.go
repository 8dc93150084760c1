package stager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapingest/internal/tabular"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// ExportSnapshot writes every row of table to path in snapshot format, with
// columns in the table's storage order. SQL NULL is written as the sentinel.
// It returns the number of data rows written.
func (s *Stager) ExportSnapshot(ctx context.Context, table, path string) (int, error) {
	var n int
	err := s.withAdapter(ctx, func(adp core.Adapter) error {
		meta, err := adp.GetTableMetadata(ctx, table)
		if err != nil {
			return err
		}

		d := adp.DialectConfig()
		header := meta.ColumnNames()
		quoted := make([]string, len(header))
		for i, c := range header {
			quoted[i] = d.QuoteIdentifier(c)
		}

		//nolint:gosec // identifiers are quoted by the dialect
		rows, err := adp.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteTable(d, table)))
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		values := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range values {
			ptrs[i] = &values[i]
		}

		n, err = tabular.WriteSnapshotFile(path, header, func() ([]string, error) {
			if !rows.Next() {
				if err := rows.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, err
			}
			rec := make([]string, len(values))
			for i, v := range values {
				rec[i] = formatValue(v)
			}
			return rec, nil
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to export %s: %w", table, err)
	}
	s.logger.Info("snapshot exported", slog.String("table", table), slog.String("path", path), slog.Int("rows", n))
	return n, nil
}

// formatValue renders a scanned value the way it was inserted.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return tabular.Sentinel
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat renders the shortest representation that round-trips,
// keeping a trailing ".0" on integral values below 1e16.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', -1, 64) + ".0"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
