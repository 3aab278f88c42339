package planner

import (
	"path/filepath"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/sample"
)

// BuildForensicsPlan produces the single forensic error-correction step of a
// sample. Each sample writes into its own directory under the output root.
func BuildForensicsPlan(cfg *config.Config, u sample.Unit) *ForensicsStep {
	f := cfg.Forensics
	return &ForensicsStep{
		R1:      u.R1,
		R2:      u.R2,
		Paired:  u.Paired(),
		OutDir:  filepath.Join(f.OutputDir, u.Name),
		Genome:  f.Genome,
		Ini:     f.Ini,
		Library: f.Library,
		Bed:     f.Bed,
	}
}
