package output

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"text", ModeText},
		{"MARKDOWN", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"", ModeAuto},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&out, &errOut, ModeAuto).IsTTY())
}

func TestRenderer_Markdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Header(2, "Run 20240301")
	r.KeyValue("Status", "completed")
	r.StatusLine("rejected", "HR_1.csv")
	r.Warning("two files rejected")

	assert.Equal(t, "## Run 20240301\n- **Status**: completed\n- [rejected] HR_1.csv\n", out.String())
	assert.Equal(t, "Warning: two files rejected\n", errOut.String())
	assert.False(t, ansi.MatchString(out.String()+errOut.String()))
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &out, false, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"rows": 4}))
	assert.JSONEq(t, `{"rows": 4}`, out.String())
}
