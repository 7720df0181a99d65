package cli

import (
	"snapscreen/internal/common"

	"github.com/spf13/cobra"
)

// addOutputFlags registers --output and --format with completion
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// applyFormatDefault fills a missing --format from app.defaultFormat and validates it
func applyFormatDefault(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
}

// writeOutput formats data to the command's output or --output file
func writeOutput(cmd *cobra.Command, data any, cc common.CommandConfig) error {
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}
	cc.Out = cmd.OutOrStdout()
	return common.NewOutputHandler(logger).HandleOutput(data, cc)
}
