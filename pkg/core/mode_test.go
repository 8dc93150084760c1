package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"train", ModeTrain, false},
		{"Training", ModeTrain, false},
		{" predict ", ModePredict, false},
		{"prediction", ModePredict, false},
		{"", "", true},
		{"score", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_Names(t *testing.T) {
	assert.Equal(t, "training", ModeTrain.DatabaseName())
	assert.Equal(t, "training_raw_data_t", ModeTrain.TableName())
	assert.Equal(t, "schema_train", ModeTrain.SchemaName())
	assert.Equal(t, "prediction", ModePredict.DatabaseName())
	assert.Equal(t, "prediction_raw_data_t", ModePredict.TableName())
	assert.Equal(t, "schema_predict", ModePredict.SchemaName())
	assert.False(t, Mode("other").Valid())
}

func TestNewRunContext(t *testing.T) {
	now := time.Date(2024, 5, 17, 14, 3, 9, 0, time.UTC)

	rc, err := NewRunContext("data/training_data", ModeTrain, now)
	require.NoError(t, err)
	assert.Equal(t, now, rc.StartedAt)
	assert.Regexp(t, `^2024-05-17_140309_[1-9][0-9]{8}$`, rc.ID)

	_, err = NewRunContext("", ModeTrain, now)
	require.Error(t, err)

	_, err = NewRunContext("data", Mode("bogus"), now)
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestNewRunID_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for range 50 {
		seen[NewRunID(now)] = true
	}
	assert.Greater(t, len(seen), 1)
}
