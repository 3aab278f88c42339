package tool

import (
	"strconv"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/planner"
)

// Filter builds the fastp invocation for a filter step. Paired-only flags
// (--in2, --out2, --merge) are emitted only when the step carries a mate.
func Filter(cfg *config.Config, sampleName string, f *planner.FilterStep) Invocation {
	args := make([]string, 0, 32)

	// --- Inputs ---
	args = append(args, "--in1", f.In1)
	if f.Mode != planner.FilterSingle && f.In2 != "" {
		args = append(args, "--in2", f.In2)
	}

	// --- Outputs ---
	switch f.Mode {
	case planner.FilterMerge:
		args = append(args, "--merge", "--merged_out", f.Out1)
	case planner.FilterSplit:
		args = append(args, "--out1", f.Out1, "--out2", f.Out2)
	default:
		args = append(args, "--out1", f.Out1)
	}

	// --- Quality filtering and trimming ---
	args = append(args,
		"--qualified_quality_phred", strconv.Itoa(f.MinQuality),
		"--unqualified_percent_limit", strconv.Itoa(f.MaxLowQualPct),
		"--trim_poly_g",
		"--trim_poly_x",
		"--length_required", strconv.Itoa(f.MinLength),
		"--thread", strconv.Itoa(f.Threads),
	)

	// --- Per-sample reports ---
	if f.JSONReport != "" {
		args = append(args, "--json", f.JSONReport)
	}
	if f.HTMLReport != "" {
		args = append(args, "--html", f.HTMLReport, "--report_title", sampleName)
	}

	args = append(args, f.ExtraArgs...)
	return Invocation{Stage: StageFilter, Sample: sampleName, Name: cfg.Tools.Fastp, Args: args}
}

// Correct builds the error-correction invocation.
func Correct(cfg *config.Config, sampleName string, c planner.CorrectStep) Invocation {
	args := []string{
		"-o", c.OutDir,
		"-r1", c.R1,
	}
	if c.Mode == planner.CorrectPaired {
		args = append(args, "-r2", c.R2)
	}
	args = append(args,
		"-r", c.Reference,
		"-ul", strconv.Itoa(c.UMILength),
		"-sl", strconv.Itoa(c.SpacerLength),
		"-t", strconv.Itoa(c.Threads),
		"-mode", string(c.Mode),
	)
	if c.Regions != "" {
		args = append(args, "-bed", c.Regions)
	}
	args = append(args, c.ExtraArgs...)
	return Invocation{Stage: StageCorrect, Sample: sampleName, Name: cfg.Tools.UMIErrorCorrect, Args: args}
}

// FastQC builds a per-file quality report invocation.
func FastQC(cfg *config.Config, sampleName, outDir, file string) Invocation {
	return Invocation{
		Stage:  StageFastQC,
		Sample: sampleName,
		Name:   cfg.Tools.FastQC,
		Args:   []string{"-o", outDir, file},
	}
}

// MultiQC builds the aggregate report invocation over the run root.
func MultiQC(cfg *config.Config, root, outDir string) Invocation {
	return Invocation{
		Stage: StageMultiQC,
		Name:  cfg.Tools.MultiQC,
		Args:  []string{root, "-o", outDir},
	}
}

// Forensics builds the forensic error-correction invocation.
func Forensics(cfg *config.Config, sampleName string, f *planner.ForensicsStep) Invocation {
	args := []string{"-r1", f.R1}
	if f.Paired {
		args = append(args, "-r2", f.R2, "-p")
	}
	args = append(args,
		"-o", f.OutDir,
		"-g", f.Genome,
		"-i", f.Ini,
		"-l", f.Library,
		"-b", f.Bed,
	)
	return Invocation{Stage: StageForensics, Sample: sampleName, Name: cfg.Tools.Forensics, Args: args}
}
