package check

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfilges/umiPipeline/internal/config"
)

// mockLogger collects messages by level.
type mockLogger struct {
	infos, successes, warns, errs []string
}

func (m *mockLogger) Info(f string, a ...interface{})    { m.infos = append(m.infos, fmt.Sprintf(f, a...)) }
func (m *mockLogger) Success(f string, a ...interface{}) { m.successes = append(m.successes, fmt.Sprintf(f, a...)) }
func (m *mockLogger) Warn(f string, a ...interface{})    { m.warns = append(m.warns, fmt.Sprintf(f, a...)) }
func (m *mockLogger) Error(f string, a ...interface{})   { m.errs = append(m.errs, fmt.Sprintf(f, a...)) }
func (m *mockLogger) Debug(string, ...interface{})       {}

// fakePath installs shell scripts that print the given output and points
// PATH at them.
func fakePath(t *testing.T, scripts map[string]string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	for name, body := range scripts {
		script := "#!/bin/sh\n" + body + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755))
	}
	t.Setenv("PATH", dir)
}

func allTools() map[string]string {
	return map[string]string{
		"fastp":                  `echo "fastp 0.23.4" >&2`,
		"run_umierrorcorrect.py": `exit 0`,
		"bwa":                    `printf '\nProgram: bwa\nVersion: 0.7.17-r1188\n' >&2; exit 1`,
		"fastqc":                 `echo "FastQC v0.12.1"`,
		"multiqc":                `echo "multiqc, version 1.21"`,
	}
}

func TestRequiredTools(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, []string{"fastp", "umierrorcorrect", "bwa", "fastqc", "multiqc"}, names(RequiredTools(&cfg)))

	cfg.SkipFiltering = true
	cfg.SkipFastQC = true
	assert.Equal(t, []string{"umierrorcorrect", "bwa", "multiqc"}, names(RequiredTools(&cfg)))

	cfg.SkipMultiQC = true
	assert.Equal(t, []string{"umierrorcorrect", "bwa"}, names(RequiredTools(&cfg)))

	assert.Equal(t, []string{"umierrorcorrect-forensics", "bwa"}, names(ForensicsTools(&cfg)))
}

func TestCheckDeps_AllPresent(t *testing.T) {
	fakePath(t, allTools())
	cfg := config.DefaultConfig()
	assert.NoError(t, CheckDeps(RequiredTools(&cfg)))
}

func TestCheckDeps_ReportsEveryMissingTool(t *testing.T) {
	tools := allTools()
	delete(tools, "fastp")
	delete(tools, "multiqc")
	fakePath(t, tools)
	cfg := config.DefaultConfig()

	err := CheckDeps(RequiredTools(&cfg))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Contains(t, err.Error(), "fastp")
	assert.Contains(t, err.Error(), "multiqc")
	assert.Contains(t, errors.FlattenHints(err), "bioconda fastp")
}

func TestCheckDeps_SkippedStageNeedsNoTool(t *testing.T) {
	tools := allTools()
	delete(tools, "fastp")
	fakePath(t, tools)
	cfg := config.DefaultConfig()
	cfg.SkipFiltering = true
	assert.NoError(t, CheckDeps(RequiredTools(&cfg)))
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"fastp 0.23.4", "0.23.4", false},
		{"FastQC v0.12.1", "0.12.1", false},
		{"multiqc, version 1.21", "1.21.0", false},
		{"Program: bwa\nVersion: 0.7.17-r1188", "0.7.17", false},
		{"no digits here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoVersion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestProbe(t *testing.T) {
	scripts := allTools()
	scripts["fastp"] = `echo "fastp 0.19.1" >&2`
	fakePath(t, scripts)
	cfg := config.DefaultConfig()
	byName := map[string]Tool{}
	for _, tl := range RequiredTools(&cfg) {
		byName[tl.Name] = tl
	}

	st := Probe(context.Background(), byName["fastp"])
	assert.Equal(t, "0.19.1", st.Version)
	assert.True(t, errors.Is(st.Err, ErrToolTooOld))

	st = Probe(context.Background(), byName["bwa"])
	assert.NoError(t, st.Err, "bwa exits non-zero without arguments")
	assert.Equal(t, "0.7.17", st.Version)

	st = Probe(context.Background(), byName["umierrorcorrect"])
	assert.NoError(t, st.Err)
	assert.Empty(t, st.Version)
	assert.NotEmpty(t, st.Path)

	st = Probe(context.Background(), Tool{Name: "ghost", Command: "ghost-tool"})
	assert.True(t, errors.Is(st.Err, ErrToolNotFound))
}

func TestRunCheck(t *testing.T) {
	fakePath(t, allTools())
	cfg := config.DefaultConfig()
	var buf bytes.Buffer
	log := &mockLogger{}

	ok := RunCheck(context.Background(), RequiredTools(&cfg), &buf, log)
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "0.23.4")
	assert.Contains(t, log.successes, "All required tools found")
	assert.Empty(t, log.errs)
}

func TestRunCheck_Missing(t *testing.T) {
	fakePath(t, map[string]string{})
	cfg := config.DefaultConfig()
	log := &mockLogger{}

	ok := RunCheck(context.Background(), ForensicsTools(&cfg), &bytes.Buffer{}, log)
	assert.False(t, ok)
	assert.NotEmpty(t, log.errs)
}

func names(tools []Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}
