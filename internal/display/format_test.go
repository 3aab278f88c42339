package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical gzipped fastq 700 MiB", 734003200, "700.0 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"negative clamps", -time.Second, "0s"},
		{"seconds", 42 * time.Second, "42s"},
		{"rounds seconds", 1400 * time.Millisecond, "1s"},
		{"minutes", 3*time.Minute + 7*time.Second, "3m07s"},
		{"hours", 2*time.Hour + 5*time.Minute + 10*time.Second, "2h05m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "…", Truncate("abc", 1))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestRenderTable(t *testing.T) {
	pterm.DisableColor()
	var buf bytes.Buffer
	err := RenderTable(&buf, []string{"Sample", "Stage", "Message"}, [][]string{
		{"S1", "filter", "exit status 1"},
		{"S2"},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Sample")
	assert.Contains(t, out, "exit status 1")
	assert.Contains(t, out, "S2")
}
