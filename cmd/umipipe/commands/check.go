package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sfilges/umiPipeline/internal/check"
	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/logging"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	flagCfg := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "check [run|forensics]",
		Short: "Report tool availability, versions and host resources",
		Long: `Checks the external tools a run needs under the given options (skipped
stages drop their tools) and prints host CPU and memory. Exits non-zero when
a tool is missing or older than the supported minimum. Pass "forensics" to
check the tools of the forensics command instead.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"run", "forensics"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			tools := check.RequiredTools(cfg)
			if len(args) == 1 && args[0] == "forensics" {
				tools = check.ForensicsTools(cfg)
			}
			if !check.RunCheck(cmd.Context(), tools, cmd.OutOrStdout(), log) {
				return errors.Mark(errors.New("system check failed"), errReported)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.BoolVarP(&flagCfg.SkipFiltering, "skip-filtering", "f", false, "Do not require fastp")
	fs.BoolVar(&flagCfg.SkipFastQC, "skip-fastqc", false, "Do not require fastqc")
	fs.BoolVar(&flagCfg.SkipMultiQC, "skip-multiqc", false, "Do not require multiqc")
	return cmd
}
