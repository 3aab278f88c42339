package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/sfilges/umiPipeline/internal/naming"
	"github.com/sfilges/umiPipeline/internal/sample"
)

// ErrStrictPairing is returned by Discover in strict mode when any read file
// could not be placed into a sample.
var ErrStrictPairing = errors.New("unpaired or unrecognized read files")

// ErrNoSamples is returned when discovery finds nothing to process.
var ErrNoSamples = errors.New("no samples found")

// WarningKind classifies a discovery warning.
type WarningKind string

const (
	WarnMissingR1    WarningKind = "missing-read1"
	WarnUnrecognized WarningKind = "unrecognized"
	WarnDuplicate    WarningKind = "duplicate-read"
)

// Warning describes a read file that was excluded during discovery.
type Warning struct {
	Kind   WarningKind `yaml:"kind"`
	Sample string      `yaml:"sample,omitempty"`
	Path   string      `yaml:"path"`
	Detail string      `yaml:"detail,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnMissingR1:
		return fmt.Sprintf("sample %s has no R1 file, skipping %s", w.Sample, w.Path)
	case WarnDuplicate:
		return fmt.Sprintf("sample %s: %s duplicates %s, ignoring it", w.Sample, w.Path, w.Detail)
	default:
		return fmt.Sprintf("cannot determine read role of %s, skipping", w.Path)
	}
}

// DiscoverOptions tunes discovery policy.
type DiscoverOptions struct {
	// Strict turns every warning into ErrStrictPairing.
	Strict bool
}

// Discovery is the outcome of scanning an input tree.
type Discovery struct {
	Samples  []sample.Unit // Sorted by name.
	Warnings []Warning
	Files    int // Read files seen, including excluded ones.
}

// Discover walks root, collects FASTQ files, prunes the pipeline's own
// output directories, and groups files into samples by parsed name. The
// result is sorted by sample name so repeated scans of an unchanged tree
// are identical.
//
// Policy: a sample with only an R2 file is excluded (WarnMissingR1); a file
// without a read designator is excluded (WarnUnrecognized); a second file
// claiming an already-filled role is ignored (WarnDuplicate). Files are
// visited in lexical path order, so the first file wins deterministically.
func Discover(root string, opts DiscoverOptions) (*Discovery, error) {
	pruned := make(map[string]bool, len(sample.OutputDirs))
	for _, d := range sample.OutputDirs {
		pruned[d] = true
	}

	// WalkDir does not descend into a symlinked root.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", root)
	}

	var paths []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != walkRoot && pruned[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if naming.IsReadFile(d.Name()) {
			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.Join(root, rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", root)
	}
	sort.Strings(paths)

	disc := &Discovery{Files: len(paths)}
	units := make(map[string]*sample.Unit)
	for _, path := range paths {
		rn, err := naming.ParseReadName(filepath.Base(path))
		if err != nil {
			disc.Warnings = append(disc.Warnings, Warning{Kind: WarnUnrecognized, Path: path, Detail: err.Error()})
			continue
		}
		u := units[rn.Sample]
		if u == nil {
			u = &sample.Unit{Name: rn.Sample}
			units[rn.Sample] = u
		}
		slot := &u.R1
		if rn.Role == naming.RoleR2 {
			slot = &u.R2
		}
		if *slot != "" {
			disc.Warnings = append(disc.Warnings, Warning{Kind: WarnDuplicate, Sample: rn.Sample, Path: path, Detail: *slot})
			continue
		}
		*slot = path
	}

	for _, u := range units {
		if u.R1 == "" {
			disc.Warnings = append(disc.Warnings, Warning{Kind: WarnMissingR1, Sample: u.Name, Path: u.R2})
			continue
		}
		disc.Samples = append(disc.Samples, *u)
	}
	sort.Slice(disc.Samples, func(i, j int) bool { return disc.Samples[i].Name < disc.Samples[j].Name })
	sort.SliceStable(disc.Warnings, func(i, j int) bool { return disc.Warnings[i].Path < disc.Warnings[j].Path })

	if opts.Strict && len(disc.Warnings) > 0 {
		return disc, errors.WithHintf(
			errors.Wrapf(ErrStrictPairing, "%d file(s) excluded", len(disc.Warnings)),
			"fix the file names or drop --strict-pairing to skip them")
	}
	return disc, nil
}
