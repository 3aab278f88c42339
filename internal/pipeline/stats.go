package pipeline

import "github.com/sfilges/umiPipeline/internal/tool"

// RunStats tracks aggregate counters across a batch run.
type RunStats struct {
	Total      int   `yaml:"total"`
	Succeeded  int   `yaml:"succeeded"`
	Failed     int   `yaml:"failed"`
	Cancelled  int   `yaml:"cancelled"`
	InputBytes int64 `yaml:"input_bytes"`
}

func (s *RunStats) add(o SampleOutcome) {
	s.Total++
	s.InputBytes += o.InputBytes
	switch o.Status {
	case tool.StatusSuccess:
		s.Succeeded++
	case tool.StatusCancelled:
		s.Cancelled++
	default:
		s.Failed++
	}
}

// Unfinished is the number of samples that did not succeed.
func (s RunStats) Unfinished() int { return s.Failed + s.Cancelled }
