package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Statements(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    []string
		wantErr string
	}{
		{name: "no params", raw: nil, want: []string{}},
		{
			name: "extensions install then load",
			raw:  map[string]any{"extensions": []any{"json", "icu"}},
			want: []string{"INSTALL json", "LOAD json", "INSTALL icu", "LOAD icu"},
		},
		{
			name: "single extension is lifted to a list",
			raw:  map[string]any{"extensions": "json"},
			want: []string{"INSTALL json", "LOAD json"},
		},
		{
			name: "settings are coerced and sorted",
			raw:  map[string]any{"settings": map[string]any{"threads": 4, "memory_limit": "4GB"}},
			want: []string{"SET memory_limit = '4GB'", "SET threads = '4'"},
		},
		{
			name:    "settings must be a map",
			raw:     map[string]any{"settings": "threads=2"},
			wantErr: "invalid duckdb params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseParams(tt.raw)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.statements())
		})
	}
}

func TestSetStatement_EscapesQuotes(t *testing.T) {
	assert.Equal(t, "SET temp_directory = '/tmp/it''s'", setStatement("temp_directory", "/tmp/it's"))
}
