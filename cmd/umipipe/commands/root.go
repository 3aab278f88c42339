// Package commands defines the umipipe subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/tool"
)

// version and commit are set at build time via -ldflags
// "-X github.com/sfilges/umiPipeline/cmd/umipipe/commands.version=...".
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

// errReported marks errors that were already written to the run log, so
// Execute does not print them a second time.
var errReported = errors.New("already reported")

// rootOptions holds the persistent flags that are not configuration keys.
type rootOptions struct {
	configFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	displayCfg := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "umipipe",
		Short: "UMI sequencing pipeline: fastp filtering, UMI error correction, QC reports",
		Long: `umipipe processes a directory of FASTQ files end to end.

Read files are grouped into samples by name (S1_R1_001.fastq.gz +
S1_R2_001.fastq.gz), filtered with fastp, error-corrected with
run_umierrorcorrect.py several samples at a time, and summarized with
FastQC and MultiQC.

Configuration is layered: flags override UMIPIPE_* environment variables,
which override the --config file, which overrides built-in defaults.

Examples:
  umipipe run -i fastqs/ -r hg38.fa -b panel.bed -t 8
  umipipe run -i fastqs/ -r hg38.fa --merge --dry-run
  umipipe samples -i fastqs/
  umipipe check`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (YAML, TOML or JSON)")
	config.DefineDisplayFlags(root.PersistentFlags(), &displayCfg)

	root.AddCommand(
		newRunCmd(opts),
		newForensicsCmd(opts),
		newSamplesCmd(opts),
		newCheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	return ExecuteArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteArgs runs the CLI with explicit arguments and writers. SIGINT and
// SIGTERM cancel the context handed to the commands.
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			printError(stderr, err)
		}
		return 1
	}
	return 0
}

// printError is used before a logger exists: errors go straight to stderr.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "umipipe: %v\n", err)
	for _, h := range errors.GetAllHints(err) {
		for _, l := range strings.Split(h, "\n") {
			fmt.Fprintf(w, "  hint: %s\n", strings.TrimSpace(l))
		}
	}
}

// logError writes err and its hints through the logger and marks it reported.
func logError(log *logging.Logger, err error) error {
	log.Error("%v", err)
	for _, h := range errors.GetAllHints(err) {
		log.Error("  hint: %s", h)
	}
	return errors.Mark(err, errReported)
}

// loadConfig layers defaults, config file, environment and flags, then
// runs the structural validation. Nothing is written to disk.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), opts.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newRunner picks the dry-run or the real process runner.
func newRunner(cmd *cobra.Command, cfg *config.Config, log *logging.Logger) tool.Runner {
	if cfg.DryRun {
		return &tool.DryRunner{Log: log}
	}
	return &tool.ExecRunner{
		Timeout: cfg.StageTimeout,
		Verbose: cfg.Verbose,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	}
}

// watchInterrupt logs once when ctx is cancelled. Call the returned stop
// function before the logger is closed.
func watchInterrupt(ctx context.Context, log *logging.Logger) func() bool {
	return context.AfterFunc(ctx, func() {
		log.Warn("Received interrupt, stopping running tools…")
	})
}
