package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfilges/umiPipeline/internal/logging"
)

func TestInventory_FlagsSizeOutliers(t *testing.T) {
	dir := t.TempDir()
	writeSized(t, dir, "A_R1_001.fastq.gz", 100)
	writeSized(t, dir, "B_R1_001.fastq.gz", 110)
	writeSized(t, dir, "C_R1_001.fastq.gz", 120)
	writeSized(t, dir, "D_R1_001.fastq.gz", 130)
	writeSized(t, dir, "E_R1_001.fastq.gz", 10000)
	writeSized(t, dir, "A_R2_001.fastq.gz", 0)

	var buf bytes.Buffer
	rows, err := Inventory(testCfg(t, dir), &buf, logging.Discard())
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "A_R2_001.fastq.gz", rows[0].R2)
	for _, r := range rows[:4] {
		assert.Empty(t, r.Flag, r.Sample)
	}
	assert.Equal(t, "extreme", rows[4].Flag)
	assert.Contains(t, buf.String(), "E")
	assert.Contains(t, buf.String(), "[!]")
}

func TestInventory_Empty(t *testing.T) {
	rows, err := Inventory(testCfg(t, t.TempDir()), &bytes.Buffer{}, logging.Discard())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestComputeStats(t *testing.T) {
	b := computeStats([]float64{1, 2, 3})
	assert.False(t, b.valid, "fewer than four values")

	b = computeStats([]float64{10, 20, 30, 40, 50})
	require.True(t, b.valid)
	assert.InDelta(t, 20, b.q1, 1e-9)
	assert.InDelta(t, 40, b.q3, 1e-9)
	assert.Equal(t, "", b.classify(35))
	assert.Equal(t, "outlier", b.classify(80))
	assert.Equal(t, "extreme", b.classify(200))
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 50))
	assert.InDelta(t, 2.5, percentile([]float64{1, 2, 3, 4}, 50), 1e-9)
	assert.Equal(t, 4.0, percentile([]float64{1, 2, 3, 4}, 100))
}
