package sanitize

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/tabular"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

func TestFillMissing(t *testing.T) {
	tests := []struct {
		name  string
		rows  [][]string
		want  [][]string
		count int
	}{
		{
			name:  "empty cells",
			rows:  [][]string{{"1", ""}, {"", "x"}},
			want:  [][]string{{"1", "NULL"}, {"NULL", "x"}},
			count: 2,
		},
		{
			name:  "na spellings",
			rows:  [][]string{{"NaN", "N/A", "None"}},
			want:  [][]string{{"NULL", "NULL", "NULL"}},
			count: 3,
		},
		{
			name:  "sentinel untouched",
			rows:  [][]string{{"NULL", "0"}},
			want:  [][]string{{"NULL", "0"}},
			count: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &tabular.Table{Header: make([]string, len(tt.rows[0])), Rows: tt.rows}
			assert.Equal(t, tt.count, FillMissing(tbl))
			assert.Equal(t, tt.want, tbl.Rows)
		})
	}
}

func TestFillMissingFile_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,,x y\n\"q,r\",NaN,3\n"), 0o600))

	n, err := FillMissingFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	n, err = FillMissingFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, "a,b,c\n1,NULL,x y\n\"q,r\",NULL,3\n", string(first))
}

func TestSanitizer_MarksFiles(t *testing.T) {
	ctx := context.Background()
	layout := bucket.NewLayout(filepath.Join(t.TempDir(), "training_data"))
	require.NoError(t, os.MkdirAll(layout.Source, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(layout.Source, "a.csv"), []byte("a,b\n1,\n"), 0o600))

	rc, err := core.NewRunContext(layout.Source, core.ModeTrain, time.Now())
	require.NoError(t, err)
	ledger := bucket.NewLedger(layout, nil, rc, nil)
	_, err = ledger.TrackSource(ctx)
	require.NoError(t, err)

	require.NoError(t, New(ledger, nil).FillMissing(ctx))
	assert.Len(t, ledger.InState(core.FileStateSanitized), 1)

	tbl, err := tabular.ReadFile(filepath.Join(layout.Source, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "NULL"}}, tbl.Rows)
}
