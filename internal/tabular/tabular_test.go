package tabular

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "NULL", "null", "NaN", "nan", "NA", "N/A", "n/a", "#N/A", "<NA>", "None", "-NaN"} {
		assert.True(t, IsMissing(v), "%q should be missing", v)
	}
	for _, v := range []string{"0", " ", "none", "Null value", "low"} {
		assert.False(t, IsMissing(v), "%q should not be missing", v)
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHdr  []string
		wantRows [][]string
		wantErr  string
	}{
		{
			name:     "simple",
			input:    "a,b,c\n1,2,3\n4,5,6\n",
			wantHdr:  []string{"a", "b", "c"},
			wantRows: [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
		},
		{
			name:     "bom is stripped",
			input:    "\xEF\xBB\xBFa,b\n1,2\n",
			wantHdr:  []string{"a", "b"},
			wantRows: [][]string{{"1", "2"}},
		},
		{
			name:     "short rows are padded",
			input:    "a,b,c\n1\n",
			wantHdr:  []string{"a", "b", "c"},
			wantRows: [][]string{{"1", "", ""}},
		},
		{
			name:     "crlf and quoted commas",
			input:    "a,b\r\n\"x,y\",2\r\n",
			wantHdr:  []string{"a", "b"},
			wantRows: [][]string{{"x,y", "2"}},
		},
		{
			name:    "header only",
			input:   "a,b\n",
			wantHdr: []string{"a", "b"},
		},
		{
			name:    "long row",
			input:   "a,b\n1,2,3\n",
			wantErr: "expected 2 fields, saw 3",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: "file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Read(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHdr, tbl.Header)
			assert.Equal(t, tt.wantRows, tbl.Rows)
		})
	}
}

func TestTable_MissingCounts(t *testing.T) {
	tbl := &Table{
		Header: []string{"a", "b", "c"},
		Rows: [][]string{
			{"1", "", "x"},
			{"NaN", "", "y"},
		},
	}
	assert.Equal(t, []int{1, 2, 0}, tbl.MissingCounts())
	assert.Equal(t, []string{"b"}, tbl.FullyMissingColumns())

	headerOnly := &Table{Header: []string{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, headerOnly.FullyMissingColumns())
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	tbl := &Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "x,y"}}}
	require.NoError(t, WriteFile(path, tbl))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be cleaned up")
}

func TestSnapshotWriter(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSnapshotWriter(&buf)
	require.NoError(t, sw.Write([]string{"empid", "note"}))
	require.NoError(t, sw.Write([]string{"1", `say "hi"`}))
	require.NoError(t, sw.Write([]string{"2", `C:\tmp`}))
	require.NoError(t, sw.Write([]string{"3", "NULL"}))
	require.NoError(t, sw.Flush())

	want := "\"empid\",\"note\"\r\n" +
		"\"1\",\"say \"\"hi\"\"\"\r\n" +
		"\"2\",\"C:\\\\tmp\"\r\n" +
		"\"3\",\"NULL\"\r\n"
	assert.Equal(t, want, buf.String())
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation", "InputFile.csv")
	header := []string{"a", "b"}
	rows := [][]string{{`back\slash`, `q"uote`}, {"NULL", ""}}

	i := 0
	n, err := WriteSnapshotFile(path, header, func() ([]string, error) {
		if i >= len(rows) {
			return nil, io.EOF
		}
		i++
		return rows[i-1], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, header, got.Header)
	assert.Equal(t, rows, got.Rows)
}
