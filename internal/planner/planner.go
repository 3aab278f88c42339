package planner

import (
	"math"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/sample"
)

// BuildPlan produces the SamplePlan for one unit. This is the decision
// matrix the pipeline calls for every sample.
//
// Flow:
//  1. Filter (unless skipped): merge when requested and paired, split when
//     paired, single-end otherwise
//  2. Correction inputs: filtered outputs, or raw reads when filtering is skipped
//  3. Correction mode: paired only when two read files reach it
func BuildPlan(cfg *config.Config, u sample.Unit, layout sample.Layout) *SamplePlan {
	plan := &SamplePlan{Unit: u}
	threads := cfg.ThreadsPerSample()

	// --- 1. Filter ---
	correctR1, correctR2 := u.R1, u.R2
	if !cfg.SkipFiltering {
		f := &FilterStep{
			In1:           u.R1,
			In2:           u.R2,
			MinQuality:    cfg.PhredScore,
			MaxLowQualPct: cfg.PercentLowQuality,
			MinLength:     cfg.MinReadLength,
			Threads:       FilterThreads(threads, cfg.FilterThreadShare),
			ExtraArgs:     cfg.FastpExtraArgs(),
		}
		f.JSONReport, f.HTMLReport = layout.FilterReports(u.Name)
		out1, out2 := layout.FilteredOutputs(u.Name)

		switch {
		case u.Paired() && cfg.MergeReads:
			f.Mode = FilterMerge
			f.Out1 = layout.MergedOutput(u.Name)
		case u.Paired():
			f.Mode = FilterSplit
			f.Out1, f.Out2 = out1, out2
		default:
			f.Mode = FilterSingle
			f.Out1 = out1
			if cfg.MergeReads {
				plan.Notes = append(plan.Notes, "merge requested but sample has no R2; filtering single-end")
			}
		}
		plan.Filter = f
		correctR1, correctR2 = f.Out1, f.Out2
	} else if cfg.MergeReads && u.Paired() {
		plan.Notes = append(plan.Notes, "merge applies only during filtering; correcting raw pair in paired mode")
	}

	// --- 2/3. Correction ---
	c := CorrectStep{
		Mode:         CorrectSingle,
		R1:           correctR1,
		OutDir:       layout.CorrectedSampleDir(u.Name),
		Reference:    cfg.Reference,
		Regions:      cfg.RegionFile,
		UMILength:    cfg.UMILength,
		SpacerLength: cfg.SpacerLength,
		Threads:      threads,
		ExtraArgs:    cfg.UMIErrorCorrectExtraArgs(),
	}
	if correctR2 != "" {
		c.Mode = CorrectPaired
		c.R2 = correctR2
	}
	plan.Correct = c

	plan.ReportInputs = []string{c.R1}
	if c.R2 != "" {
		plan.ReportInputs = append(plan.ReportInputs, c.R2)
	}
	return plan
}

// FilterThreads is the fastp thread count: floor(sampleThreads * share), at least 1.
func FilterThreads(sampleThreads int, share float64) int {
	n := int(math.Floor(float64(sampleThreads) * share))
	if n < 1 {
		return 1
	}
	return n
}
