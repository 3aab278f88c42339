package planner

import "github.com/sfilges/umiPipeline/internal/sample"

// FilterMode selects how fastp treats a sample's reads.
type FilterMode int

const (
	FilterSplit  FilterMode = iota // Paired input, two filtered outputs.
	FilterMerge                    // Paired input merged into one output.
	FilterSingle                   // Primary input only.
)

func (m FilterMode) String() string {
	switch m {
	case FilterMerge:
		return "merge"
	case FilterSingle:
		return "single-end"
	}
	return "split"
}

// CorrectionMode is passed to the error-correction tool as -mode.
type CorrectionMode string

const (
	CorrectSingle CorrectionMode = "single"
	CorrectPaired CorrectionMode = "paired"
)

// SamplePlan holds the complete set of decisions for one sample. It is
// produced by BuildPlan and consumed by the pipeline, which turns each step
// into a tool invocation.
type SamplePlan struct {
	Unit sample.Unit

	// Filter is nil when filtering is skipped.
	Filter *FilterStep

	Correct CorrectStep

	// ReportInputs are the read files that reach error correction; the
	// per-file quality reports run over them once the sample succeeds.
	ReportInputs []string

	// Notes are human-readable remarks about non-obvious decisions.
	Notes []string
}

// FilterStep describes one fastp invocation.
type FilterStep struct {
	Mode FilterMode

	In1, In2   string // In2 empty for single-end.
	Out1, Out2 string // Out2 empty for merge and single-end.
	JSONReport string
	HTMLReport string

	MinQuality    int
	MaxLowQualPct int
	MinLength     int
	Threads       int
	ExtraArgs     []string
}

// CorrectStep describes one error-correction invocation.
type CorrectStep struct {
	Mode CorrectionMode

	R1, R2    string // R2 set only in paired mode.
	OutDir    string
	Reference string
	Regions   string // Optional bed file.

	UMILength    int
	SpacerLength int
	Threads      int
	ExtraArgs    []string
}

// ForensicsStep describes one forensic error-correction invocation.
type ForensicsStep struct {
	R1, R2  string
	Paired  bool
	OutDir  string
	Genome  string
	Ini     string
	Library string
	Bed     string
}
