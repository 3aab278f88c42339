package tool

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHint(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"disk full", "write error: No space left on device", "no space left on device"},
		{"python oom", "Traceback ...\nMemoryError", "out of memory; lower --threads or --sample-threads"},
		{"bwa oom", "[bwa_index] fail to allocate: Cannot allocate memory", "out of memory; lower --threads or --sample-threads"},
		{"missing bwa", "sh: 1: bwa: command not found", "command not found; run `umipipe check`"},
		{"truncated gzip", "igzip: Error during decompression", "input looks truncated or corrupt"},
		{"missing file", "ERROR: Failed to open file: /x/S1_R1.fq.gz", "missing input or output path"},
		{"permission", "open /run/qc: Permission denied", "permission denied"},
		{"unclassified", "Segmentation fault", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Hint(tt.stderr))
		})
	}
}

func TestTail(t *testing.T) {
	var lines []string
	for i := 1; i <= 30; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i), "")
	}
	got := Tail(strings.Join(lines, "\n"), 3)
	assert.Equal(t, []string{"line 28", "line 29", "line 30"}, got)
	assert.Empty(t, Tail("", 5))
	assert.Equal(t, []string{"only"}, Tail("only\r\n", 5))
}

func TestDiagnose(t *testing.T) {
	msg := Diagnose("fastp", "", &exec.Error{Name: "fastp", Err: exec.ErrNotFound})
	assert.Equal(t, "fastp: executable not found on PATH", msg)

	msg = Diagnose("fastp", "reading\nERROR: Disk quota exceeded\n", errors.New("exit status 255"))
	assert.Equal(t, "exit status 255 (no space left on device)\nreading\nERROR: Disk quota exceeded", msg)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, -1, ExitCode(errors.New("boom")))
}
