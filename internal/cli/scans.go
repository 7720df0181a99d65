package cli

import (
	"fmt"
	"io"
	"strconv"

	"snapscreen/internal/common"
	"snapscreen/internal/dashboard"
	"snapscreen/internal/types"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "List, show and delete stored scans",
}

var scansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scans, newest first",
	Args:  cobra.NoArgs,
	RunE:  runScansList,
}

var scansShowCmd = &cobra.Command{
	Use:   "show [scan-id]",
	Short: "Show the full result of one scan",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return applyFormatDefault(cmd, &scansShowConfig)
	},
	RunE: runScansShow,
}

var scansDeleteCmd = &cobra.Command{
	Use:   "delete [scan-id]",
	Short: "Delete a scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScansDelete,
}

var (
	scansListFilter string
	scansListConfig common.CommandConfig
	scansShowConfig common.CommandConfig
)

func init() {
	scansListCmd.Flags().StringVarP(&scansListFilter, "filter", "f", "", "Only list scans whose title contains this text (case-insensitive)")
	addOutputFlags(scansListCmd, &scansListConfig)
	addOutputFlags(scansShowCmd, &scansShowConfig)

	scansCmd.AddCommand(scansListCmd)
	scansCmd.AddCommand(scansShowCmd)
	scansCmd.AddCommand(scansDeleteCmd)
}

func runScansList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	svc := &services{logger: logger}
	defer svc.Close()
	if err := svc.openStore(cmd.Context(), cfg); err != nil {
		return err
	}

	view, err := dashboard.NewSidebar(svc.Scans).Items(cmd.Context(), scansListFilter, dashboard.NoSelection)
	if err != nil {
		return err
	}

	// without --format the list is a colored table
	if scansListConfig.OutputFormat == "" && scansListConfig.OutputFile == "" {
		renderScanTable(cmd.OutOrStdout(), view)
		return nil
	}
	if err := applyFormatDefault(cmd, &scansListConfig); err != nil {
		return err
	}
	return writeOutput(cmd, view, scansListConfig)
}

func runScansShow(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	svc := &services{logger: logger}
	defer svc.Close()
	if err := svc.openStore(cmd.Context(), cfg); err != nil {
		return err
	}

	detail, err := dashboard.NewResolver(svc.Scans).Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return writeOutput(cmd, dashboard.NewDetailView(detail), scansShowConfig)
}

func runScansDelete(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	svc := &services{logger: logger}
	defer svc.Close()
	if err := svc.openStore(cmd.Context(), cfg); err != nil {
		return err
	}

	if err := svc.Scans.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	logger.Info("Scan deleted", "scan_id", args[0])
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %s\n", args[0])
	return nil
}

// tierColor is green, yellow or red for the score tier
func tierColor(tier types.ScoreTier) *color.Color {
	switch tier {
	case types.TierGood:
		return color.New(color.FgGreen)
	case types.TierWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func renderScanTable(out io.Writer, view dashboard.SidebarView) {
	if view.Empty {
		if view.Filter != "" {
			_, _ = color.New(color.FgYellow).Fprintf(out, "No scans match %q.\n", view.Filter)
		} else {
			_, _ = color.New(color.FgYellow).Fprintln(out, "No scans yet.")
		}
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Title", "Company", "Date", "Score", "Tier"})
	for _, item := range view.Items {
		company := item.Company
		if company == "" {
			company = "-"
		}
		table.Append([]string{
			item.ID,
			item.Title,
			company,
			item.Date,
			strconv.Itoa(item.Score),
			tierColor(item.Tier).Sprint(string(item.Tier)),
		})
	}
	table.Render()
}
