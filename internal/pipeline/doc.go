// Package pipeline orchestrates sample discovery, the bounded per-sample
// workers, the batch quality reports and the end-of-run summary.
//
// A run walks the input tree (discover.go), groups read files into samples,
// and fans them out to a fixed set of workers (pool.go, scheduler.go). Each
// worker runs one sample's stages in order and reports a SampleOutcome to a
// single collector, which owns the RunSummary. Once every sample is
// terminal, FastQC and MultiQC run over the surviving outputs (report.go)
// and the summary is written to qc_reports/run_summary.yaml.
package pipeline
