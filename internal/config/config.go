// Package config holds runtime configuration: defaults, CLI flag definitions,
// layered loading (flags, environment, config file) and validation.
//
// A Config is built once at startup and is read-only afterwards; every worker
// receives the same *Config.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"github.com/shirou/gopsutil/v3/cpu"
)

// ErrInvalidConfig marks every error produced by validation. Callers test
// for it with errors.Is to decide that nothing has been written yet.
var ErrInvalidConfig = errors.New("invalid configuration")

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// DefaultLogName is the run log created inside the input directory.
const DefaultLogName = "script_log.txt"

// Tools names the external executables and any extra arguments appended to
// their command lines. Extra arguments are shell-quoted strings.
type Tools struct {
	Fastp               string `mapstructure:"fastp" yaml:"fastp"`
	UMIErrorCorrect     string `mapstructure:"umierrorcorrect" yaml:"umierrorcorrect"`
	Forensics           string `mapstructure:"forensics" yaml:"forensics"`
	BWA                 string `mapstructure:"bwa" yaml:"bwa"`
	FastQC              string `mapstructure:"fastqc" yaml:"fastqc"`
	MultiQC             string `mapstructure:"multiqc" yaml:"multiqc"`
	FastpArgs           string `mapstructure:"fastp-args" yaml:"fastp-args,omitempty"`
	UMIErrorCorrectArgs string `mapstructure:"umierrorcorrect-args" yaml:"umierrorcorrect-args,omitempty"`
}

// Forensics holds the resources of the forensic error-correction workflow.
type Forensics struct {
	OutputDir string `mapstructure:"output" yaml:"output"`
	Genome    string `mapstructure:"genome" yaml:"genome"`
	Ini       string `mapstructure:"ini" yaml:"ini"`
	Library   string `mapstructure:"library" yaml:"library"`
	Bed       string `mapstructure:"bed" yaml:"bed"`
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [Load] and checked by [Config.Validate] and
// [Config.ValidateResources] before being passed (by pointer) to packages
// that need it.
type Config struct {
	// Paths.
	InputDir   string `mapstructure:"input-dir" yaml:"input-dir"`
	Reference  string `mapstructure:"reference" yaml:"reference"`
	RegionFile string `mapstructure:"bed" yaml:"bed,omitempty"`

	// Error correction.
	UMILength    int `mapstructure:"umi-length" yaml:"umi-length"`       // Default: 19.
	SpacerLength int `mapstructure:"spacer-length" yaml:"spacer-length"` // Default: 16.

	// Resources.
	Concurrency       int           `mapstructure:"threads" yaml:"threads"`                         // Parallel samples. Default: half the logical CPUs.
	SampleThreads     int           `mapstructure:"sample-threads" yaml:"sample-threads"`           // Threads handed to each tool. 0 means Concurrency.
	FilterThreadShare float64       `mapstructure:"filter-thread-share" yaml:"filter-thread-share"` // Default: 0.5.
	StageTimeout      time.Duration `mapstructure:"stage-timeout" yaml:"stage-timeout"`             // 0 disables.
	LaunchRate        float64       `mapstructure:"launch-rate" yaml:"launch-rate"`                 // Samples started per second, 0 unlimited.

	// Filtering.
	SkipFiltering     bool `mapstructure:"skip-filtering" yaml:"skip-filtering"`
	PhredScore        int  `mapstructure:"phred-score" yaml:"phred-score"`                 // Default: 20.
	PercentLowQuality int  `mapstructure:"percent-low-quality" yaml:"percent-low-quality"` // Default: 40.
	MinReadLength     int  `mapstructure:"min-length" yaml:"min-length"`                   // Default: 100.
	MergeReads        bool `mapstructure:"merge" yaml:"merge"`

	// Reporting.
	SkipFastQC  bool `mapstructure:"skip-fastqc" yaml:"skip-fastqc"`
	SkipMultiQC bool `mapstructure:"skip-multiqc" yaml:"skip-multiqc"`

	// Behavior.
	StrictPairing bool `mapstructure:"strict-pairing" yaml:"strict-pairing"`
	DryRun        bool `mapstructure:"dry-run" yaml:"dry-run"`

	// Display and logging.
	Verbose   bool      `mapstructure:"verbose" yaml:"verbose"`
	ColorMode ColorMode `mapstructure:"color" yaml:"color"`
	LogFile   string    `mapstructure:"log" yaml:"log,omitempty"` // Default: <input-dir>/script_log.txt.
	JSONLogs  bool      `mapstructure:"log-json" yaml:"log-json"`

	Tools     Tools     `mapstructure:"tools" yaml:"tools"`
	Forensics Forensics `mapstructure:"forensics" yaml:"forensics,omitempty"`
}

// DefaultConfig returns a Config with the historic script defaults. Used as
// the base before [Load] applies file, environment and flag overrides.
func DefaultConfig() Config {
	return Config{
		InputDir:          ".",
		UMILength:         19,
		SpacerLength:      16,
		Concurrency:       DefaultConcurrency(),
		FilterThreadShare: 0.5,
		PhredScore:        20,
		PercentLowQuality: 40,
		MinReadLength:     100,
		ColorMode:         ColorAuto,
		Tools: Tools{
			Fastp:           "fastp",
			UMIErrorCorrect: "run_umierrorcorrect.py",
			Forensics:       "run_umierrorcorrect_forensics.py",
			BWA:             "bwa",
			FastQC:          "fastqc",
			MultiQC:         "multiqc",
		},
	}
}

// DefaultConcurrency is half the logical CPU count, never less than one.
func DefaultConcurrency() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if n/2 < 1 {
		return 1
	}
	return n / 2
}

// ThreadsPerSample is the thread count handed to each external tool.
func (c *Config) ThreadsPerSample() int {
	if c.SampleThreads > 0 {
		return c.SampleThreads
	}
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return 1
}

// ResolvedLogFile returns the run log path, defaulting to the input directory.
func (c *Config) ResolvedLogFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.InputDir, DefaultLogName)
}

// FastpExtraArgs splits the configured extra fastp arguments.
func (c *Config) FastpExtraArgs() []string {
	args, _ := shellquote.Split(c.Tools.FastpArgs)
	return args
}

// UMIErrorCorrectExtraArgs splits the configured extra error-correction arguments.
func (c *Config) UMIErrorCorrectExtraArgs() []string {
	args, _ := shellquote.Split(c.Tools.UMIErrorCorrectArgs)
	return args
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks numeric ranges, enum values and extra-argument syntax.
// It touches no files; see [Config.ValidateResources].
func (c *Config) Validate() error {
	nonNegative := []struct {
		name string
		v    int
	}{
		{"umi-length", c.UMILength},
		{"spacer-length", c.SpacerLength},
		{"threads", c.Concurrency},
		{"sample-threads", c.SampleThreads},
		{"phred-score", c.PhredScore},
		{"percent-low-quality", c.PercentLowQuality},
		{"min-length", c.MinReadLength},
	}
	for _, n := range nonNegative {
		if n.v < 0 {
			return invalidf("%s must not be negative (got %d)", n.name, n.v)
		}
	}
	if c.Concurrency == 0 {
		return invalidf("threads must be at least 1")
	}
	if c.PercentLowQuality > 100 {
		return invalidf("percent-low-quality must be between 0 and 100 (got %d)", c.PercentLowQuality)
	}
	if c.FilterThreadShare <= 0 || c.FilterThreadShare > 1 {
		return invalidf("filter-thread-share must be in (0, 1] (got %g)", c.FilterThreadShare)
	}
	if c.StageTimeout < 0 {
		return invalidf("stage-timeout must not be negative (got %s)", c.StageTimeout)
	}
	if c.LaunchRate < 0 {
		return invalidf("launch-rate must not be negative (got %g)", c.LaunchRate)
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return invalidf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	for key, raw := range map[string]string{
		"tools.fastp-args":           c.Tools.FastpArgs,
		"tools.umierrorcorrect-args": c.Tools.UMIErrorCorrectArgs,
	} {
		if _, err := shellquote.Split(raw); err != nil {
			return errors.Mark(errors.Wrapf(err, "%s", key), ErrInvalidConfig)
		}
	}

	if c.InputDir == "" {
		return invalidf("input directory must not be empty")
	}
	return nil
}

// ValidateResources requires the input directory and every configured
// resource file to exist. It runs before any output directory is created.
func (c *Config) ValidateResources() error {
	if err := requireDir("input directory", c.InputDir); err != nil {
		return err
	}
	if c.Reference == "" {
		return errors.WithHint(invalidf("reference genome is required"),
			"pass --reference /path/to/genome.fa")
	}
	if err := requireFile("reference genome", c.Reference); err != nil {
		return err
	}
	if c.RegionFile != "" {
		if err := requireFile("region file", c.RegionFile); err != nil {
			return err
		}
	}
	return nil
}

// ValidateForensics requires every forensic workflow resource to be set and
// present. The output directory itself is created later.
func (c *Config) ValidateForensics() error {
	if err := requireDir("input directory", c.InputDir); err != nil {
		return err
	}
	f := c.Forensics
	if f.OutputDir == "" {
		return invalidf("forensics output directory is required")
	}
	for _, r := range []struct{ name, path string }{
		{"genome", f.Genome},
		{"ini file", f.Ini},
		{"library file", f.Library},
		{"bed file", f.Bed},
	} {
		if r.path == "" {
			return invalidf("forensics %s is required", r.name)
		}
		if err := requireFile(r.name, r.path); err != nil {
			return err
		}
	}
	return nil
}

func requireFile(what, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s", what), ErrInvalidConfig)
	}
	if !fi.Mode().IsRegular() {
		return invalidf("%s %s is not a regular file", what, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s not readable", what), ErrInvalidConfig)
	}
	return f.Close()
}

func requireDir(what, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s", what), ErrInvalidConfig)
	}
	if !fi.IsDir() {
		return invalidf("%s %s is not a directory", what, path)
	}
	return nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfig)
}
