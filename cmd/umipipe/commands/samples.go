package commands

import (
	"github.com/spf13/cobra"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/logging"
	"github.com/sfilges/umiPipeline/internal/pipeline"
)

func newSamplesCmd(opts *rootOptions) *cobra.Command {
	flagCfg := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "List the samples a run would process, flagging size outliers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			if _, err := pipeline.Inventory(cfg, cmd.OutOrStdout(), log); err != nil {
				return logError(log, err)
			}
			return nil
		},
	}
	config.DefineDiscoveryFlags(cmd.Flags(), &flagCfg)
	return cmd
}
