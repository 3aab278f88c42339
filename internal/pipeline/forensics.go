package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/planner"
	"github.com/sfilges/umiPipeline/internal/sample"
	"github.com/sfilges/umiPipeline/internal/tool"
)

// RunForensics runs forensic error correction on every sample under
// cfg.InputDir, writing each into its own directory below
// cfg.Forensics.OutputDir. Scheduling, cancellation and failure handling
// match Run; there is no filtering and no report stage.
func RunForensics(ctx context.Context, cfg *config.Config, runner tool.Runner, log *logging.Logger) (*RunSummary, error) {
	started := time.Now()

	disc, err := Discover(cfg.InputDir, DiscoverOptions{Strict: cfg.StrictPairing})
	if disc != nil {
		logWarnings(log, disc.Warnings)
	}
	if err != nil {
		return nil, err
	}
	if len(disc.Samples) == 0 {
		return nil, errors.Wrapf(ErrNoSamples, "in %s", cfg.InputDir)
	}

	if !cfg.DryRun {
		if err := os.MkdirAll(cfg.Forensics.OutputDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create forensics output directory")
		}
	}

	log.Info("Found %d samples in %s", len(disc.Samples), cfg.InputDir)
	log.Info("Workers: %d, output: %s", cfg.Concurrency, cfg.Forensics.OutputDir)
	if cfg.DryRun {
		log.Warn("Dry run: commands are logged, nothing is executed")
	}

	summary := Schedule(ctx, disc.Samples, scheduleOptions(cfg, log), func(ctx context.Context, u sample.Unit) SampleOutcome {
		step := planner.BuildForensicsPlan(cfg, u)
		slog := log.With("sample", u.Name)
		out := SampleOutcome{Sample: u.Name, InputBytes: u.Size()}
		return runStages(ctx, runner, slog, out, []tool.Invocation{tool.Forensics(cfg, u.Name, step)},
			func(tool.Invocation) error {
				if cfg.DryRun {
					return nil
				}
				return errors.Wrap(os.MkdirAll(step.OutDir, 0o755), "create sample output directory")
			})
	})
	summary.Root = cfg.InputDir
	summary.Started = started
	summary.Warnings = disc.Warnings
	summary.Finished = time.Now()

	if ctx.Err() != nil {
		log.Warn("Interrupted; samples not yet started were cancelled")
	}
	logSummary(log, summary, "")

	if !summary.OK() {
		return summary, errors.Wrapf(ErrSamplesFailed, "%d of %d", summary.Stats.Unfinished(), summary.Stats.Total)
	}
	return summary, nil
}
