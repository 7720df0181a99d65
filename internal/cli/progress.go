package cli

import (
	"time"

	"snapscreen/internal/common"
	"snapscreen/internal/dashboard"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Summarize all scans: averages, companies and recent activity",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return applyFormatDefault(cmd, &progressConfig)
	},
	RunE: runProgress,
}

var progressConfig common.CommandConfig

// now is replaced in tests
var now = time.Now

func init() {
	addOutputFlags(progressCmd, &progressConfig)
}

func runProgress(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	svc := &services{logger: logger}
	defer svc.Close()
	if err := svc.openStore(cmd.Context(), cfg); err != nil {
		return err
	}

	summaries, err := svc.Scans.List(cmd.Context(), "")
	if err != nil {
		return err
	}
	return writeOutput(cmd, dashboard.BuildProgress(summaries, now()), progressConfig)
}
