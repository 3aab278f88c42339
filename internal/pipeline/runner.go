package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/display"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/planner"
	"github.com/sfilges/umiPipeline/internal/sample"
	"github.com/sfilges/umiPipeline/internal/tool"
)

// ErrSamplesFailed is returned by Run when at least one sample failed or
// was cancelled. The summary is still returned and complete.
var ErrSamplesFailed = errors.New("samples did not complete")

var stageLabels = map[string]string{
	tool.StageFilter:    "Filtering",
	tool.StageCorrect:   "UMI error correction",
	tool.StageFastQC:    "FastQC",
	tool.StageMultiQC:   "MultiQC",
	tool.StageForensics: "Forensic error correction",
}

// Run is the top-level batch entry point. It discovers samples under
// cfg.InputDir, creates the output directories, filters and corrects every
// sample with at most cfg.Concurrency in flight, then runs the quality
// reports over whatever survived. Per-sample failures are recorded in the
// returned summary; the error is non-nil for run-level problems and, after
// reporting, wraps ErrSamplesFailed when any sample did not succeed.
func Run(ctx context.Context, cfg *config.Config, runner tool.Runner, log *logging.Logger) (*RunSummary, error) {
	started := time.Now()

	disc, err := Discover(cfg.InputDir, DiscoverOptions{Strict: cfg.StrictPairing})
	if disc != nil {
		logWarnings(log, disc.Warnings)
	}
	if err != nil {
		return nil, err
	}
	if len(disc.Samples) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(ErrNoSamples, "in %s", cfg.InputDir),
			"read files are expected to look like S1_R1_001.fastq.gz or S1_R1.fastq.gz")
	}

	layout := sample.NewLayout(cfg.InputDir)
	if !cfg.DryRun {
		if err := layout.Create(); err != nil {
			return nil, err
		}
	}

	logBatchHeader(cfg, log, disc)

	summary := Schedule(ctx, disc.Samples, scheduleOptions(cfg, log), func(ctx context.Context, u sample.Unit) SampleOutcome {
		return processSample(ctx, cfg, runner, layout, log.With("sample", u.Name), u)
	})
	summary.Root = cfg.InputDir
	summary.Started = started
	summary.Warnings = disc.Warnings

	if ctx.Err() != nil {
		log.Warn("Interrupted; samples not yet started were cancelled")
	}

	runReports(ctx, cfg, runner, layout, summary, log)
	summary.Finished = time.Now()

	var summaryPath string
	if !cfg.DryRun {
		summaryPath = layout.SummaryFile()
		if err := WriteSummaryFile(summaryPath, cfg, summary); err != nil {
			log.Warn("Cannot write run summary: %v", err)
			summaryPath = ""
		}
	}
	logSummary(log, summary, summaryPath)

	if !summary.OK() {
		return summary, errors.Wrapf(ErrSamplesFailed, "%d of %d", summary.Stats.Unfinished(), summary.Stats.Total)
	}
	return summary, nil
}

func scheduleOptions(cfg *config.Config, log *logging.Logger) ScheduleOptions {
	opts := ScheduleOptions{
		Workers: cfg.Concurrency,
		OnDone: func(done, total int, o SampleOutcome) {
			switch o.Status {
			case tool.StatusSuccess:
				log.Success("[%d/%d] %s done in %s", done, total, o.Sample, display.FormatDuration(o.Duration))
			case tool.StatusCancelled:
				log.Warn("[%d/%d] %s cancelled", done, total, o.Sample)
			default:
				log.Error("[%d/%d] %s failed at %s", done, total, o.Sample, o.FailedStage)
			}
		},
	}
	if cfg.LaunchRate > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.LaunchRate), 1)
	}
	return opts
}

// processSample runs the sample's filter and correction stages in order.
// The correction stage never starts after a failed filter.
func processSample(
	ctx context.Context,
	cfg *config.Config,
	runner tool.Runner,
	layout sample.Layout,
	log *logging.Logger,
	u sample.Unit,
) SampleOutcome {
	plan := planner.BuildPlan(cfg, u, layout)
	for _, n := range plan.Notes {
		log.Warn("%s", n)
	}

	var invs []tool.Invocation
	if plan.Filter != nil {
		invs = append(invs, tool.Filter(cfg, u.Name, plan.Filter))
	}
	invs = append(invs, tool.Correct(cfg, u.Name, plan.Correct))

	if plan.Filter != nil {
		log.Info("Starting: fastp %s, then %s correction", plan.Filter.Mode, plan.Correct.Mode)
	} else {
		log.Info("Starting: %s correction on raw reads", plan.Correct.Mode)
	}

	out := SampleOutcome{Sample: u.Name, InputBytes: u.Size(), ReportInputs: plan.ReportInputs}
	return runStages(ctx, runner, log, out, invs, func(inv tool.Invocation) error {
		if cfg.DryRun || inv.Stage != tool.StageCorrect {
			return nil
		}
		return errors.Wrap(os.MkdirAll(plan.Correct.OutDir, 0o755), "create sample output directory")
	})
}

// runStages executes invs in order and stops at the first stage that does
// not succeed. prepare, when set, runs before each stage; its error fails
// that stage without launching it.
func runStages(
	ctx context.Context,
	runner tool.Runner,
	log *logging.Logger,
	out SampleOutcome,
	invs []tool.Invocation,
	prepare func(tool.Invocation) error,
) SampleOutcome {
	start := time.Now()
	out.Status = tool.StatusSuccess

	for _, inv := range invs {
		label := stageLabels[inv.Stage]
		if prepare != nil {
			if err := prepare(inv); err != nil {
				out.Status, out.FailedStage, out.Message = tool.StatusFailure, inv.Stage, err.Error()
				log.Error("%s: %v", label, err)
				out.Duration = time.Since(start)
				return out
			}
		}

		log.Debug("%s", inv.CommandLine())
		res := runner.Run(ctx, inv)
		out.Stages = append(out.Stages, res)

		if res.OK() {
			log.Info("%s finished in %s", label, display.FormatDuration(res.Duration))
			continue
		}

		out.Status, out.FailedStage, out.Message = res.Status, inv.Stage, res.Message
		if res.Status == tool.StatusCancelled {
			log.Warn("%s %s", label, res.Message)
		} else {
			log.Error("%s failed (exit %d)", label, res.ExitCode)
			logStderr(log, res.Message)
		}
		out.Duration = time.Since(start)
		return out
	}
	out.Duration = time.Since(start)
	return out
}

func logStderr(log *logging.Logger, msg string) {
	if msg == "" {
		return
	}
	for _, l := range strings.Split(strings.TrimSpace(msg), "\n") {
		log.Error("  %s", l)
	}
}

// --- Logging helpers ---

func logWarnings(log *logging.Logger, warnings []Warning) {
	for _, w := range warnings {
		log.Warn("%s", w)
	}
}

func logBatchHeader(cfg *config.Config, log *logging.Logger, disc *Discovery) {
	var paired int
	for _, u := range disc.Samples {
		if u.Paired() {
			paired++
		}
	}
	log.Info("Found %d samples in %s (%d paired, %d single-end)",
		len(disc.Samples), cfg.InputDir, paired, len(disc.Samples)-paired)

	threads := cfg.ThreadsPerSample()
	log.Info("Workers: %d, threads per sample: %d", cfg.Concurrency, threads)

	if cfg.SkipFiltering {
		log.Info("Filtering: skipped, raw reads go straight to error correction")
	} else {
		mode := "split"
		if cfg.MergeReads {
			mode = "merge"
		}
		log.Info("Filtering: fastp %s, Q>=%d, <=%d%% low quality bases, length>=%d, %d threads",
			mode, cfg.PhredScore, cfg.PercentLowQuality, cfg.MinReadLength,
			planner.FilterThreads(threads, cfg.FilterThreadShare))
	}

	log.Info("UMI: %d bp, spacer %d bp", cfg.UMILength, cfg.SpacerLength)
	log.Info("Reference: %s", cfg.Reference)
	if cfg.RegionFile != "" {
		log.Info("Regions: %s", cfg.RegionFile)
	}
	if cfg.StageTimeout > 0 {
		log.Info("Stage timeout: %s", display.FormatDuration(cfg.StageTimeout))
	}
	if cfg.LaunchRate > 0 {
		log.Info("Launch rate: %.2g samples/s", cfg.LaunchRate)
	}
	if cfg.DryRun {
		log.Warn("Dry run: commands are logged, nothing is executed")
	}
}
