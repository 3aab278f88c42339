// Package sample defines the unit of work (one sequencing sample) and the
// run-directory layout its derived outputs live in.
package sample

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Output directories created under the run root.
const (
	FilteredDir  = "filtered_fastqs"
	CorrectedDir = "umi_corrected_samples"
	ReportDir    = "qc_reports"
)

// OutputDirs lists every directory the pipeline writes into, in creation order.
var OutputDirs = []string{FilteredDir, CorrectedDir, ReportDir}

// Unit is one sample: a required primary read file and an optional
// secondary (mate) file.
type Unit struct {
	Name string
	R1   string
	R2   string // Empty for single-end samples.
}

// Paired reports whether the unit has a secondary read file.
func (u Unit) Paired() bool { return u.R2 != "" }

// Inputs returns the raw read files, primary first.
func (u Unit) Inputs() []string {
	if u.Paired() {
		return []string{u.R1, u.R2}
	}
	return []string{u.R1}
}

// Size sums the byte size of the unit's input files. Missing files count as zero.
func (u Unit) Size() int64 {
	var n int64
	for _, p := range u.Inputs() {
		if fi, err := os.Stat(p); err == nil {
			n += fi.Size()
		}
	}
	return n
}

// Layout resolves the per-sample output paths under a run root. Sample
// names partition the namespace, so concurrent samples never share a path.
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at dir.
func NewLayout(dir string) Layout { return Layout{Root: dir} }

func (l Layout) FilteredDir() string  { return filepath.Join(l.Root, FilteredDir) }
func (l Layout) CorrectedDir() string { return filepath.Join(l.Root, CorrectedDir) }
func (l Layout) ReportDir() string    { return filepath.Join(l.Root, ReportDir) }

// MergedOutput is the single fastp output of merge mode.
func (l Layout) MergedOutput(name string) string {
	return filepath.Join(l.FilteredDir(), name+".merged.filtered.fastq.gz")
}

// FilteredOutputs returns the fastp outputs for split or single-end mode.
func (l Layout) FilteredOutputs(name string) (r1, r2 string) {
	return filepath.Join(l.FilteredDir(), name+".filtered.R1.fastq.gz"),
		filepath.Join(l.FilteredDir(), name+".filtered.R2.fastq.gz")
}

// FilterReports returns the per-sample fastp JSON and HTML report paths.
func (l Layout) FilterReports(name string) (jsonPath, htmlPath string) {
	return filepath.Join(l.FilteredDir(), name+".fastp.json"),
		filepath.Join(l.FilteredDir(), name+".fastp.html")
}

// CorrectedSampleDir is the error-correction output directory of one sample.
func (l Layout) CorrectedSampleDir(name string) string {
	return filepath.Join(l.CorrectedDir(), name)
}

// SummaryFile is the machine-readable run summary.
func (l Layout) SummaryFile() string {
	return filepath.Join(l.ReportDir(), "run_summary.yaml")
}

// Create makes every output directory. It is only called once
// configuration and resources have been validated.
func (l Layout) Create() error {
	for _, d := range OutputDirs {
		if err := os.MkdirAll(filepath.Join(l.Root, d), 0o755); err != nil {
			return errors.Wrapf(err, "create %s", d)
		}
	}
	return nil
}
