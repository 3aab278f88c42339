package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/display"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/sample"
	"github.com/sfilges/umiPipeline/internal/tool"
)

// runReports runs FastQC over the report inputs of every successful sample,
// bounded by the same worker count as the samples, then MultiQC once over
// the run root. Report failures are logged and recorded but never change
// the outcome of a sample.
func runReports(
	ctx context.Context,
	cfg *config.Config,
	runner tool.Runner,
	layout sample.Layout,
	summary *RunSummary,
	log *logging.Logger,
) {
	if cfg.SkipFastQC && cfg.SkipMultiQC {
		return
	}
	if ctx.Err() != nil {
		log.Warn("Quality reports skipped: interrupted")
		return
	}

	if !cfg.SkipFastQC {
		var invs []tool.Invocation
		for _, o := range summary.Samples {
			if !o.OK() {
				continue
			}
			for _, f := range o.ReportInputs {
				invs = append(invs, tool.FastQC(cfg, o.Sample, layout.ReportDir(), f))
			}
		}

		if len(invs) == 0 {
			log.Warn("FastQC skipped: no sample completed")
		} else {
			log.Info("Running FastQC on %d file(s)", len(invs))
			notStarted := func(inv tool.Invocation, err error) tool.StageResult {
				return tool.StageResult{
					Stage: inv.Stage, Sample: inv.Sample, Status: tool.StatusCancelled,
					ExitCode: -1, Message: "not started: " + err.Error(), Command: inv.CommandLine(),
				}
			}
			var results []tool.StageResult
			for res := range fanOut(ctx, invs, poolOptions{workers: cfg.Concurrency}, runner.Run, notStarted) {
				results = append(results, res)
			}
			sort.Slice(results, func(i, j int) bool { return results[i].Command < results[j].Command })
			logReportResults(log, results)
			summary.Reports = append(summary.Reports, results...)
		}
	}

	if !cfg.SkipMultiQC {
		log.Info("Running MultiQC over %s", layout.Root)
		inv := tool.MultiQC(cfg, layout.Root, layout.ReportDir())
		log.Debug("%s", inv.CommandLine())
		res := runner.Run(ctx, inv)
		logReportResults(log, []tool.StageResult{res})
		summary.Reports = append(summary.Reports, res)
	}
}

func logReportResults(log *logging.Logger, results []tool.StageResult) {
	var failed int
	for _, r := range results {
		if r.OK() {
			continue
		}
		failed++
		what := stageLabels[r.Stage]
		if r.Sample != "" {
			what += " (" + r.Sample + ")"
		}
		log.Warn("%s did not complete: %s", what, firstLine(r.Message))
	}
	if failed == 0 && len(results) > 0 {
		log.Success("%s finished", stageLabels[results[0].Stage])
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// summaryDocument is the on-disk shape of run_summary.yaml.
type summaryDocument struct {
	RunSummary `yaml:",inline"`
	Duration   time.Duration  `yaml:"duration"`
	Config     *config.Config `yaml:"config"`
}

// WriteSummaryFile writes the run summary and the effective configuration
// as YAML. The file is written to a temporary name and renamed into place.
func WriteSummaryFile(path string, cfg *config.Config, s *RunSummary) error {
	doc := summaryDocument{RunSummary: *s, Duration: s.Finished.Sub(s.Started), Config: cfg}
	b, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "encode run summary")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create summary directory")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "write run summary")
	}
	return errors.Wrap(os.Rename(tmp, path), "write run summary")
}

// ReadSummaryFile loads a summary written by WriteSummaryFile.
func ReadSummaryFile(path string) (*RunSummary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read run summary")
	}
	var doc summaryDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &doc.RunSummary, nil
}

// logSummary prints the end-of-run report. summaryPath is omitted when empty.
func logSummary(log *logging.Logger, s *RunSummary, summaryPath string) {
	st := s.Stats
	log.Info("==============================")
	log.Info("Done: %d succeeded, %d failed, %d cancelled (of %d) in %s",
		st.Succeeded, st.Failed, st.Cancelled, st.Total, display.FormatDuration(s.Finished.Sub(s.Started)))
	log.Info("  Input processed: %s", display.FormatBytes(st.InputBytes))

	if failed := s.Failed(); len(failed) > 0 {
		rows := make([][]string, 0, len(failed))
		for _, o := range failed {
			rows = append(rows, []string{o.Sample, string(o.Status), o.FailedStage, display.Truncate(firstLine(o.Message), 60)})
		}
		var buf bytes.Buffer
		if err := display.RenderTable(&buf, []string{"Sample", "Status", "Stage", "Reason"}, rows); err == nil {
			for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
				log.Warn("%s", l)
			}
		}
	}

	if summaryPath != "" {
		log.Info("  Run summary: %s", summaryPath)
	}
	if st.Unfinished() == 0 {
		log.Success("All samples completed")
	}
}
