package pipeline

import (
	"io"
	"math"
	"path/filepath"
	"sort"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/display"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/term"
)

// InventoryRow is one sample of the inventory table.
type InventoryRow struct {
	Sample string
	R1     string
	R2     string // Empty for single-end.
	Bytes  int64
	Flag   string // "", "outlier" or "extreme".
}

// Inventory discovers samples and prints a table of their read files with
// input sizes. Samples whose size falls outside the interquartile fences
// are flagged: a sample far smaller than its batch usually means a
// truncated transfer or a failed library.
func Inventory(cfg *config.Config, w io.Writer, log *logging.Logger) ([]InventoryRow, error) {
	disc, err := Discover(cfg.InputDir, DiscoverOptions{Strict: cfg.StrictPairing})
	if disc != nil {
		logWarnings(log, disc.Warnings)
	}
	if err != nil {
		return nil, err
	}
	if len(disc.Samples) == 0 {
		log.Warn("No samples found in %s", cfg.InputDir)
		return nil, nil
	}

	rows := make([]InventoryRow, 0, len(disc.Samples))
	sizes := make([]float64, 0, len(disc.Samples))
	for _, u := range disc.Samples {
		r := InventoryRow{Sample: u.Name, R1: filepath.Base(u.R1), Bytes: u.Size()}
		if u.Paired() {
			r.R2 = filepath.Base(u.R2)
		}
		rows = append(rows, r)
		sizes = append(sizes, float64(r.Bytes))
	}

	bounds := computeStats(sizes)
	for i := range rows {
		rows[i].Flag = bounds.classify(float64(rows[i].Bytes))
	}

	if err := printInventoryTable(w, rows); err != nil {
		return rows, err
	}
	printInventorySummary(log, rows, bounds)
	return rows, nil
}

func printInventoryTable(w io.Writer, rows []InventoryRow) error {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		r2 := r.R2
		if r2 == "" {
			r2 = "-"
		}
		data = append(data, []string{
			r.Sample,
			display.Truncate(r.R1, 50),
			display.Truncate(r2, 50),
			colorize(display.FormatBytes(r.Bytes), r.Flag),
			formatFlag(r.Flag),
		})
	}
	return display.RenderTable(w, []string{"Sample", "R1", "R2", "Size", ""}, data)
}

func printInventorySummary(log *logging.Logger, rows []InventoryRow, b iqrBounds) {
	var outliers, extremes, paired int
	for _, r := range rows {
		if r.R2 != "" {
			paired++
		}
		switch r.Flag {
		case "extreme":
			extremes++
		case "outlier":
			outliers++
		}
	}

	log.Info("%d samples (%d paired, %d single-end)", len(rows), paired, len(rows)-paired)
	if b.valid {
		log.Info("  Input size IQR: %s - %s (outlier below %s or above %s)",
			display.FormatBytes(int64(b.q1)), display.FormatBytes(int64(b.q3)),
			display.FormatBytes(int64(math.Max(b.outlierLo, 0))), display.FormatBytes(int64(b.outlierHi)))
	}
	if outliers > 0 {
		log.Warn("  %d outlier(s) flagged [*]", outliers)
	}
	if extremes > 0 {
		log.Error("  %d extreme outlier(s) flagged [!]", extremes)
	}
	if outliers == 0 && extremes == 0 && b.valid {
		log.Success("  No outliers detected")
	}
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	q1, q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		q1:        q1,
		q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func formatFlag(flag string) string {
	switch flag {
	case "extreme":
		return term.Red + "[!]" + term.NC
	case "outlier":
		return term.Orange + "[*]" + term.NC
	default:
		return ""
	}
}

func colorize(s, class string) string {
	switch class {
	case "extreme":
		return term.Red + s + term.NC
	case "outlier":
		return term.Orange + s + term.NC
	default:
		return s
	}
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
