package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sfilges/umiPipeline/internal/check"
	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/pipeline"
)

func newForensicsCmd(opts *rootOptions) *cobra.Command {
	flagCfg := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "forensics",
		Short: "Run forensic UMI error correction on every sample",
		Long: `Runs run_umierrorcorrect_forensics.py once per sample, several samples
at a time. Paired samples are passed with -r2 and -p. Each sample writes
into its own <output>/<sample> directory rather than sharing <output>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForensics(); err != nil {
				return err
			}
			if !cfg.DryRun {
				if err := check.CheckDeps(check.ForensicsTools(cfg)); err != nil {
					return err
				}
			}

			if !cfg.DryRun || cfg.LogFile != "" {
				cfg.LogFile = cfg.ResolvedLogFile()
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			log.Info("=== umipipe forensics v%s ===", version)
			stop := watchInterrupt(cmd.Context(), log)
			defer stop()

			_, err = pipeline.RunForensics(cmd.Context(), cfg, newRunner(cmd, cfg, log), log)
			if err != nil {
				if errors.Is(err, pipeline.ErrSamplesFailed) {
					return errors.Mark(err, errReported)
				}
				return logError(log, err)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.SortFlags = false
	config.DefineForensicsFlags(fs, &flagCfg)
	return cmd
}
