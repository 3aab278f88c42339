package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sfilges/umiPipeline/internal/check"
	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/display"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/pipeline"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	flagCfg := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Filter, error-correct and QC every sample in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Phase 1: bootstrap. Nothing is written until configuration,
			// resources and tools have been validated.
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateResources(); err != nil {
				return err
			}
			if !cfg.DryRun {
				if err := check.CheckDeps(check.RequiredTools(cfg)); err != nil {
					return err
				}
			}

			// Phase 2: logger available; everything goes through it.
			if !cfg.DryRun || cfg.LogFile != "" {
				cfg.LogFile = cfg.ResolvedLogFile()
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			display.PrintBanner(cmd.OutOrStdout(), version)
			log.Info("=== umipipe v%s (%s) ===", version, commit)
			log.Info("In:  %s", cfg.InputDir)
			if cfg.LogFile != "" {
				log.Info("Log: %s", cfg.LogFile)
			}

			// Phase 3: run with SIGINT/SIGTERM cancelling in-flight tools.
			ctx := cmd.Context()
			stop := watchInterrupt(ctx, log)
			defer stop()

			_, err = pipeline.Run(ctx, cfg, newRunner(cmd, cfg, log), log)
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
	config.DefineRunFlags(fs, &flagCfg)
	return cmd
}
