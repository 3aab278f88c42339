package config

// This file defines the CLI flags and merges them with the config file and
// environment. Flags are grouped into paths, correction, filtering,
// resources, reporting and display. Flag names double as config keys.

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (UMIPIPE_THREADS, ...).
const EnvPrefix = "UMIPIPE"

// flagKeys maps flag names whose config key differs from the flag name.
var flagKeys = map[string]string{
	"output":  "forensics.output",
	"genome":  "forensics.genome",
	"ini":     "forensics.ini",
	"library": "forensics.library",
	"regions": "forensics.bed",
}

// DefineRunFlags registers the flags of the main pipeline command.
func DefineRunFlags(fs *pflag.FlagSet, cfg *Config) {
	definePathFlags(fs, cfg)
	defineCorrectionFlags(fs, cfg)
	defineFilterFlags(fs, cfg)
	defineResourceFlags(fs, cfg)
	defineReportFlags(fs, cfg)
}

// DefineForensicsFlags registers the flags of the forensic workflow.
func DefineForensicsFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.InputDir, "input-dir", "i", cfg.InputDir, "Directory scanned recursively for FASTQ files")
	fs.StringVarP(&cfg.Forensics.OutputDir, "output", "o", "", "Output directory")
	fs.StringVarP(&cfg.Forensics.Genome, "genome", "g", "", "Reference genome")
	fs.StringVar(&cfg.Forensics.Ini, "ini", "", "Forensic marker ini file")
	fs.StringVarP(&cfg.Forensics.Library, "library", "l", "", "Library file")
	fs.StringVarP(&cfg.Forensics.Bed, "regions", "b", "", "Bed file of target regions")
	defineResourceFlags(fs, cfg)
}

// DefineDiscoveryFlags registers the flags shared by commands that only scan inputs.
func DefineDiscoveryFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.InputDir, "input-dir", "i", cfg.InputDir, "Directory scanned recursively for FASTQ files")
	fs.BoolVar(&cfg.StrictPairing, "strict-pairing", false, "Treat unpaired or unrecognized read files as fatal")
}

// DefineDisplayFlags registers the persistent display and logging flags.
func DefineDisplayFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output (tool stderr, debug logs)")
	fs.Var(&colorModeValue{&cfg.ColorMode}, "color", "Colored output: auto | always | never")
	fs.StringVar(&cfg.LogFile, "log", "", "Run log path (default: <input-dir>/"+DefaultLogName+")")
	fs.BoolVar(&cfg.JSONLogs, "log-json", false, "Emit JSON log lines")
}

// definePathFlags registers -i/--input-dir, -r/--reference, -b/--bed.
func definePathFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.InputDir, "input-dir", "i", cfg.InputDir, "Directory scanned recursively for FASTQ files")
	fs.StringVarP(&cfg.Reference, "reference", "r", "", "Reference genome (required)")
	fs.StringVarP(&cfg.RegionFile, "bed", "b", "", "Bed file restricting error correction to regions")
}

// defineCorrectionFlags registers -u/--umi-length, -s/--spacer-length.
func defineCorrectionFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVarP(&cfg.UMILength, "umi-length", "u", cfg.UMILength, "UMI length")
	fs.IntVarP(&cfg.SpacerLength, "spacer-length", "s", cfg.SpacerLength, "Spacer length")
}

// defineFilterFlags registers the fastp filtering flags.
func defineFilterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.SkipFiltering, "skip-filtering", "f", false, "Skip fastp filtering")
	fs.IntVarP(&cfg.PhredScore, "phred-score", "q", cfg.PhredScore, "Minimum qualified base quality")
	fs.IntVarP(&cfg.PercentLowQuality, "percent-low-quality", "p", cfg.PercentLowQuality, "Maximum percent of unqualified bases")
	fs.IntVar(&cfg.MinReadLength, "min-length", cfg.MinReadLength, "Minimum read length after filtering")
	fs.BoolVar(&cfg.MergeReads, "merge", false, "Merge overlapping read pairs during filtering (no effect with --skip-filtering)")
	fs.Float64Var(&cfg.FilterThreadShare, "filter-thread-share", cfg.FilterThreadShare, "Fraction of sample threads given to fastp")
}

// defineResourceFlags registers concurrency, timeout, pacing and pairing policy.
func defineResourceFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVarP(&cfg.Concurrency, "threads", "t", cfg.Concurrency, "Samples processed in parallel")
	fs.IntVar(&cfg.SampleThreads, "sample-threads", 0, "Threads per tool invocation (default: --threads)")
	fs.DurationVar(&cfg.StageTimeout, "stage-timeout", 0, "Kill a stage after this long (0 disables)")
	fs.Float64Var(&cfg.LaunchRate, "launch-rate", 0, "Maximum samples started per second (0 unlimited)")
	fs.BoolVar(&cfg.StrictPairing, "strict-pairing", false, "Treat unpaired or unrecognized read files as fatal")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", false, "Print tool commands without running them")
}

// defineReportFlags registers --skip-fastqc, --skip-multiqc.
func defineReportFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.SkipFastQC, "skip-fastqc", false, "Skip per-file FastQC reports")
	fs.BoolVar(&cfg.SkipMultiQC, "skip-multiqc", false, "Skip the aggregate MultiQC report")
}

// SetDefaults seeds v with every key of base so environment overrides
// resolve for keys that are absent from the config file.
func SetDefaults(v *viper.Viper, base Config) {
	v.SetDefault("input-dir", base.InputDir)
	v.SetDefault("reference", base.Reference)
	v.SetDefault("bed", base.RegionFile)
	v.SetDefault("umi-length", base.UMILength)
	v.SetDefault("spacer-length", base.SpacerLength)
	v.SetDefault("threads", base.Concurrency)
	v.SetDefault("sample-threads", base.SampleThreads)
	v.SetDefault("filter-thread-share", base.FilterThreadShare)
	v.SetDefault("stage-timeout", base.StageTimeout)
	v.SetDefault("launch-rate", base.LaunchRate)
	v.SetDefault("skip-filtering", base.SkipFiltering)
	v.SetDefault("phred-score", base.PhredScore)
	v.SetDefault("percent-low-quality", base.PercentLowQuality)
	v.SetDefault("min-length", base.MinReadLength)
	v.SetDefault("merge", base.MergeReads)
	v.SetDefault("skip-fastqc", base.SkipFastQC)
	v.SetDefault("skip-multiqc", base.SkipMultiQC)
	v.SetDefault("strict-pairing", base.StrictPairing)
	v.SetDefault("dry-run", base.DryRun)
	v.SetDefault("verbose", base.Verbose)
	v.SetDefault("color", string(base.ColorMode))
	v.SetDefault("log", base.LogFile)
	v.SetDefault("log-json", base.JSONLogs)

	v.SetDefault("tools.fastp", base.Tools.Fastp)
	v.SetDefault("tools.umierrorcorrect", base.Tools.UMIErrorCorrect)
	v.SetDefault("tools.forensics", base.Tools.Forensics)
	v.SetDefault("tools.bwa", base.Tools.BWA)
	v.SetDefault("tools.fastqc", base.Tools.FastQC)
	v.SetDefault("tools.multiqc", base.Tools.MultiQC)
	v.SetDefault("tools.fastp-args", base.Tools.FastpArgs)
	v.SetDefault("tools.umierrorcorrect-args", base.Tools.UMIErrorCorrectArgs)

	v.SetDefault("forensics.output", base.Forensics.OutputDir)
	v.SetDefault("forensics.genome", base.Forensics.Genome)
	v.SetDefault("forensics.ini", base.Forensics.Ini)
	v.SetDefault("forensics.library", base.Forensics.Library)
	v.SetDefault("forensics.bed", base.Forensics.Bed)
}

// Load merges, lowest to highest precedence: [DefaultConfig], the optional
// config file (YAML or TOML, chosen by extension), UMIPIPE_* environment
// variables, and the flags explicitly set on fs. fs may be nil.
func Load(fs *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	SetDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Mark(
				errors.Wrapf(err, "read config file %s", configFile), ErrInvalidConfig)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || f.Name == "help" {
				return
			}
			key := f.Name
			if k, ok := flagKeys[f.Name]; ok {
				key = k
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, errors.Wrap(bindErr, "bind flags")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Mark(errors.Wrap(err, "decode configuration"), ErrInvalidConfig)
	}
	cfg.InputDir = NormalizeDirArg(cfg.InputDir)
	return cfg, nil
}

// colorModeValue adapts ColorMode to pflag.Value.
type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}

func (c *colorModeValue) Set(s string) error {
	switch ColorMode(strings.ToLower(s)) {
	case ColorAuto:
		*c.p = ColorAuto
	case ColorAlways:
		*c.p = ColorAlways
	case ColorNever:
		*c.p = ColorNever
	default:
		return errors.Newf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}

func (c *colorModeValue) Type() string { return "mode" }
