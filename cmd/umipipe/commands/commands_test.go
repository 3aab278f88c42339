package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/sample"
)

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = ExecuteArgs(context.Background(), append(args, "--color", "never"), &out, &errb)
	return code, out.String(), errb.String()
}

func seedInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"S1_R1_001.fastq.gz", "S1_R2_001.fastq.gz", "S2_R1_001.fastq.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("@r\nACGT\n+\nIIII\n"), 0o644))
	}
	return dir
}

func assertUntouched(t *testing.T, dir string) {
	t.Helper()
	for _, d := range sample.OutputDirs {
		assert.NoDirExists(t, filepath.Join(dir, d))
	}
	assert.NoFileExists(t, filepath.Join(dir, config.DefaultLogName))
}

func TestRun_MissingReferenceWritesNothing(t *testing.T) {
	dir := seedInput(t)

	code, _, stderr := execute(t, "run", "-i", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "reference")
	assert.Contains(t, stderr, "hint: pass --reference")
	assertUntouched(t, dir)
}

func TestRun_InvalidOptionWritesNothing(t *testing.T) {
	dir := seedInput(t)
	ref := filepath.Join(t.TempDir(), "genome.fa")
	require.NoError(t, os.WriteFile(ref, []byte(">chr1\nACGT\n"), 0o644))

	code, _, stderr := execute(t, "run", "-i", dir, "-r", ref, "-p", "150")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "umipipe:")
	assertUntouched(t, dir)
}

func TestRun_MissingToolWritesNothing(t *testing.T) {
	dir := seedInput(t)
	ref := filepath.Join(t.TempDir(), "genome.fa")
	require.NoError(t, os.WriteFile(ref, []byte(">chr1\nACGT\n"), 0o644))
	t.Setenv("PATH", t.TempDir())

	code, _, stderr := execute(t, "run", "-i", dir, "-r", ref)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not found")
	assertUntouched(t, dir)
}

func TestRun_DryRun(t *testing.T) {
	dir := seedInput(t)
	ref := filepath.Join(t.TempDir(), "genome.fa")
	require.NoError(t, os.WriteFile(ref, []byte(">chr1\nACGT\n"), 0o644))

	code, stdout, _ := execute(t, "run", "-i", dir, "-r", ref, "--dry-run", "-t", "2")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "v"+version)
	assertUntouched(t, dir)
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, stderr := execute(t, "run", "--no-such-flag")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no-such-flag")
}

func TestHelp_DescribesOutputAndMergeCaveats(t *testing.T) {
	code, stdout, _ := execute(t, "run", "--help")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "no effect with --skip-filtering")

	code, stdout, _ = execute(t, "forensics", "--help")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "its own <output>/<sample> directory")
}

func TestForensics_RequiresResources(t *testing.T) {
	dir := seedInput(t)
	code, _, stderr := execute(t, "forensics", "-i", dir, "-o", filepath.Join(dir, "out"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "umipipe:")
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestSamples(t *testing.T) {
	dir := seedInput(t)
	code, stdout, _ := execute(t, "samples", "-i", dir)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "S1_R2_001.fastq.gz")
	assert.Contains(t, stdout, "S2")
	assertUntouched(t, dir)
}

func TestSamples_StrictPairingFails(t *testing.T) {
	dir := seedInput(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "S3_R2_001.fastq.gz"), nil, 0o644))
	code, _, _ := execute(t, "samples", "-i", dir, "--strict-pairing")
	assert.Equal(t, 1, code)
}

func TestCheck_RejectsUnknownTarget(t *testing.T) {
	code, _, stderr := execute(t, "check", "bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "bogus")
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := seedInput(t)
	cfgFile := filepath.Join(t.TempDir(), "umipipe.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("percent-low-quality: 150\n"), 0o644))

	code, _, stderr := execute(t, "run", "-i", dir, "--config", cfgFile)
	assert.Equal(t, 1, code, "invalid value from the config file is rejected")
	assert.Contains(t, stderr, "umipipe:")
	assertUntouched(t, dir)
}

func TestVersion(t *testing.T) {
	code, stdout, _ := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "umipipe version "+version)
}
