package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sfilges/umiPipeline/internal/sample"
	"github.com/sfilges/umiPipeline/internal/tool"
)

// SampleOutcome is the terminal record of one sample.
type SampleOutcome struct {
	Sample      string             `yaml:"sample"`
	Status      tool.Status        `yaml:"status"`
	FailedStage string             `yaml:"failed_stage,omitempty"`
	Message     string             `yaml:"message,omitempty"`
	Duration    time.Duration      `yaml:"duration"`
	InputBytes  int64              `yaml:"input_bytes"`
	Stages      []tool.StageResult `yaml:"stages,omitempty"`

	// ReportInputs are the files the quality reports run over once the
	// sample succeeds.
	ReportInputs []string `yaml:"-"`
}

// OK reports whether every stage of the sample succeeded.
func (o SampleOutcome) OK() bool { return o.Status == tool.StatusSuccess }

// SampleFunc processes one sample to a terminal outcome. It must honour ctx
// and never panic on tool failure.
type SampleFunc func(ctx context.Context, u sample.Unit) SampleOutcome

// ScheduleOptions bounds the batch.
type ScheduleOptions struct {
	// Workers is the number of samples processed at once.
	Workers int
	// Limiter paces sample launches; nil disables pacing.
	Limiter *rate.Limiter
	// OnDone is called from the collecting goroutine as each sample finishes.
	OnDone func(done, total int, o SampleOutcome)
}

// RunSummary aggregates every outcome of a run. It is owned by the
// collecting goroutine; workers only send outcomes to it.
type RunSummary struct {
	RunID    string             `yaml:"run_id"`
	Root     string             `yaml:"root"`
	Started  time.Time          `yaml:"started"`
	Finished time.Time          `yaml:"finished"`
	Stats    RunStats           `yaml:"stats"`
	Samples  []SampleOutcome    `yaml:"samples"`
	Reports  []tool.StageResult `yaml:"reports,omitempty"`
	Warnings []Warning          `yaml:"warnings,omitempty"`
}

func newRunSummary(root string) *RunSummary {
	return &RunSummary{RunID: uuid.NewString(), Root: root, Started: time.Now()}
}

// Failed returns the samples that failed or were cancelled, sorted by name.
func (s *RunSummary) Failed() []SampleOutcome {
	var out []SampleOutcome
	for _, o := range s.Samples {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every sample succeeded. Report stages do not count.
func (s *RunSummary) OK() bool { return s.Stats.Unfinished() == 0 }

// Outcome returns the record for name.
func (s *RunSummary) Outcome(name string) (SampleOutcome, bool) {
	for _, o := range s.Samples {
		if o.Sample == name {
			return o, true
		}
	}
	return SampleOutcome{}, false
}

// Schedule runs work for every unit with at most opts.Workers samples in
// flight and blocks until each has reached a terminal status. A failing
// sample never stops the others. After ctx is cancelled, samples not yet
// started are recorded as cancelled without running.
func Schedule(ctx context.Context, units []sample.Unit, opts ScheduleOptions, work SampleFunc) *RunSummary {
	summary := newRunSummary("")
	notStarted := func(u sample.Unit, err error) SampleOutcome {
		return SampleOutcome{
			Sample:     u.Name,
			Status:     tool.StatusCancelled,
			Message:    "not started: " + err.Error(),
			InputBytes: u.Size(),
		}
	}

	results := fanOut(ctx, units, poolOptions{workers: opts.Workers, limiter: opts.Limiter}, work, notStarted)
	for o := range results {
		summary.Samples = append(summary.Samples, o)
		summary.Stats.add(o)
		if opts.OnDone != nil {
			opts.OnDone(len(summary.Samples), len(units), o)
		}
	}

	sort.Slice(summary.Samples, func(i, j int) bool { return summary.Samples[i].Sample < summary.Samples[j].Sample })
	return summary
}
