package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/sample"
)

// --- Helper builders ---

func defaultCfg() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Reference = "/ref/hg38.fa"
	cfg.Concurrency = 8
	return &cfg
}

var layout = sample.NewLayout("/run")

func pairedUnit() sample.Unit {
	return sample.Unit{Name: "S1", R1: "/run/S1_R1_001.fastq.gz", R2: "/run/S1_R2_001.fastq.gz"}
}

func singleUnit() sample.Unit {
	return sample.Unit{Name: "S2", R1: "/run/S2_R1_001.fastq.gz"}
}

func TestBuildPlan_PairedSplit(t *testing.T) {
	plan := BuildPlan(defaultCfg(), pairedUnit(), layout)

	require.NotNil(t, plan.Filter)
	f := plan.Filter
	assert.Equal(t, FilterSplit, f.Mode)
	assert.Equal(t, "/run/S1_R1_001.fastq.gz", f.In1)
	assert.Equal(t, "/run/S1_R2_001.fastq.gz", f.In2)
	assert.Equal(t, "/run/filtered_fastqs/S1.filtered.R1.fastq.gz", f.Out1)
	assert.Equal(t, "/run/filtered_fastqs/S1.filtered.R2.fastq.gz", f.Out2)
	assert.Equal(t, 20, f.MinQuality)
	assert.Equal(t, 40, f.MaxLowQualPct)
	assert.Equal(t, 100, f.MinLength)
	assert.Equal(t, 4, f.Threads)

	c := plan.Correct
	assert.Equal(t, CorrectPaired, c.Mode)
	assert.Equal(t, f.Out1, c.R1)
	assert.Equal(t, f.Out2, c.R2)
	assert.Equal(t, "/run/umi_corrected_samples/S1", c.OutDir)
	assert.Equal(t, 8, c.Threads)
	assert.Equal(t, []string{f.Out1, f.Out2}, plan.ReportInputs)
	assert.Empty(t, plan.Notes)
}

func TestBuildPlan_PairedMerge(t *testing.T) {
	cfg := defaultCfg()
	cfg.MergeReads = true
	plan := BuildPlan(cfg, pairedUnit(), layout)

	require.NotNil(t, plan.Filter)
	assert.Equal(t, FilterMerge, plan.Filter.Mode)
	assert.Equal(t, "/run/filtered_fastqs/S1.merged.filtered.fastq.gz", plan.Filter.Out1)
	assert.Empty(t, plan.Filter.Out2)
	assert.Equal(t, CorrectSingle, plan.Correct.Mode)
	assert.Equal(t, plan.Filter.Out1, plan.Correct.R1)
	assert.Empty(t, plan.Correct.R2)
}

func TestBuildPlan_SingleEndNeverPaired(t *testing.T) {
	for _, merge := range []bool{false, true} {
		cfg := defaultCfg()
		cfg.MergeReads = merge
		plan := BuildPlan(cfg, singleUnit(), layout)

		require.NotNil(t, plan.Filter)
		assert.Equal(t, FilterSingle, plan.Filter.Mode)
		assert.Empty(t, plan.Filter.In2)
		assert.Empty(t, plan.Filter.Out2)
		assert.Equal(t, CorrectSingle, plan.Correct.Mode)
		assert.Empty(t, plan.Correct.R2)
		assert.Equal(t, merge, len(plan.Notes) == 1)
	}
}

func TestBuildPlan_SkipFiltering(t *testing.T) {
	tests := []struct {
		name      string
		unit      sample.Unit
		merge     bool
		wantMode  CorrectionMode
		wantNotes int
	}{
		{"paired raw", pairedUnit(), false, CorrectPaired, 0},
		{"paired raw with merge", pairedUnit(), true, CorrectPaired, 1},
		{"single raw", singleUnit(), false, CorrectSingle, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultCfg()
			cfg.SkipFiltering = true
			cfg.MergeReads = tt.merge
			plan := BuildPlan(cfg, tt.unit, layout)

			assert.Nil(t, plan.Filter)
			assert.Equal(t, tt.wantMode, plan.Correct.Mode)
			assert.Equal(t, tt.unit.R1, plan.Correct.R1)
			assert.Equal(t, tt.unit.R2, plan.Correct.R2)
			assert.Equal(t, tt.unit.Inputs(), plan.ReportInputs)
			assert.Len(t, plan.Notes, tt.wantNotes)
		})
	}
}

func TestBuildPlan_CorrectionParameters(t *testing.T) {
	cfg := defaultCfg()
	cfg.UMILength = 12
	cfg.SpacerLength = 11
	cfg.RegionFile = "/ref/panel.bed"
	cfg.SampleThreads = 3
	cfg.Tools.UMIErrorCorrectArgs = "-s 2"

	c := BuildPlan(cfg, pairedUnit(), layout).Correct
	assert.Equal(t, "/ref/hg38.fa", c.Reference)
	assert.Equal(t, "/ref/panel.bed", c.Regions)
	assert.Equal(t, 12, c.UMILength)
	assert.Equal(t, 11, c.SpacerLength)
	assert.Equal(t, 3, c.Threads)
	assert.Equal(t, []string{"-s", "2"}, c.ExtraArgs)
}

func TestFilterThreads(t *testing.T) {
	tests := []struct {
		threads int
		share   float64
		want    int
	}{
		{8, 0.5, 4},
		{7, 0.5, 3},
		{1, 0.5, 1},
		{0, 0.5, 1},
		{10, 0.25, 2},
		{6, 1, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FilterThreads(tt.threads, tt.share), "threads=%d share=%g", tt.threads, tt.share)
	}
}

func TestBuildForensicsPlan(t *testing.T) {
	cfg := defaultCfg()
	cfg.Forensics = config.Forensics{
		OutputDir: "/out", Genome: "/g.fa", Ini: "/m.ini", Library: "/lib.txt", Bed: "/t.bed",
	}

	p := BuildForensicsPlan(cfg, pairedUnit())
	assert.True(t, p.Paired)
	assert.Equal(t, "/out/S1", p.OutDir)
	assert.Equal(t, "/run/S1_R2_001.fastq.gz", p.R2)

	s := BuildForensicsPlan(cfg, singleUnit())
	assert.False(t, s.Paired)
	assert.Empty(t, s.R2)
}

func TestFilterModeString(t *testing.T) {
	assert.Equal(t, "split", FilterSplit.String())
	assert.Equal(t, "merge", FilterMerge.String())
	assert.Equal(t, "single-end", FilterSingle.String())
}
