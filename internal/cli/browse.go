package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"snapscreen/internal/dashboard"
	"snapscreen/internal/errors"
	"snapscreen/internal/formatters"
	"snapscreen/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse scans interactively",
	Long: `Browse scans the way the dashboard shows them: a filtered list on top
and the selected scan below.

At the prompt enter a list number or scan id to select it (again to clear
the selection), /text to filter by title, / to clear the filter, or q to quit.`,
	Args: cobra.NoArgs,
	RunE: runBrowseCmd,
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	svc := &services{logger: logger}
	defer svc.Close()
	if err := svc.openStore(cmd.Context(), cfg); err != nil {
		return err
	}
	return newBrowser(svc.Scans, cmd.OutOrStdout(), logger).run(cmd.Context(), cmd.InOrStdin())
}

// browser is the interactive sidebar and detail loop
type browser struct {
	sidebar *dashboard.Sidebar
	ctrl    *dashboard.Controller
	out     io.Writer
	filter  string
	items   []dashboard.SidebarItem
}

func newBrowser(scans store.Store, out io.Writer, logger *errors.Logger) *browser {
	return &browser{
		sidebar: dashboard.NewSidebar(scans),
		ctrl: dashboard.NewController(dashboard.NewResolver(scans), func(s dashboard.DetailState) {
			logger.Debug("Detail state changed", "state", s.Kind, "scan_id", s.ScanID)
		}),
		out: out,
	}
}

func (b *browser) run(ctx context.Context, in io.Reader) error {
	defer b.ctrl.Close()

	scanner := bufio.NewScanner(in)
	for {
		if err := b.renderList(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprint(b.out, "\n> ")

		if !scanner.Scan() {
			_, _ = fmt.Fprintln(b.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
		case line == "q" || line == "quit" || line == "exit":
			color.New(color.FgCyan).Fprintln(b.out, "Bye.")
			return nil
		case strings.HasPrefix(line, "/"):
			b.filter = strings.TrimPrefix(line, "/")
		default:
			b.toggle(ctx, line)
		}
	}
}

func (b *browser) toggle(ctx context.Context, choice string) {
	id := choice
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(b.items) {
		id = b.items[n-1].ID
	}

	b.ctrl.Toggle(ctx, id)
	b.ctrl.Wait()
	b.renderDetail(b.ctrl.State())
}

func (b *browser) renderList(ctx context.Context) error {
	view, err := b.sidebar.Items(ctx, b.filter, b.ctrl.Selection())
	if err != nil {
		return err
	}
	b.items = view.Items

	header := "\n=== SCANS ==="
	if view.Filter != "" {
		header = fmt.Sprintf("\n=== SCANS matching %q ===", view.Filter)
	}
	color.New(color.FgCyan, color.Bold).Fprintln(b.out, header)

	if view.Empty {
		color.New(color.FgYellow).Fprintln(b.out, "No scans match your search.")
		return nil
	}
	for i, item := range view.Items {
		marker := " "
		if item.Selected {
			marker = ">"
		}
		_, _ = fmt.Fprintf(b.out, "%s %2d. %-32s %-12s %s  ", marker, i+1, item.Title, item.Company, item.Date)
		tierColor(item.Tier).Fprintf(b.out, "%3d\n", item.Score)
	}
	return nil
}

func (b *browser) renderDetail(state dashboard.DetailState) {
	switch state.Kind {
	case dashboard.KindReady:
		text, err := formatters.GlobalRegistry.Format(state.View, "text")
		if err != nil {
			color.New(color.FgRed).Fprintf(b.out, "Cannot show scan %s: %v\n", state.ScanID, err)
			return
		}
		_, _ = fmt.Fprint(b.out, "\n", text)
	case dashboard.KindNotFound:
		color.New(color.FgRed).Fprintf(b.out, "Scan %s not found.\n", state.ScanID)
	case dashboard.KindFailed:
		color.New(color.FgRed).Fprintf(b.out, "Failed to load scan %s: %s\n", state.ScanID, state.Error)
	default:
		_, _ = fmt.Fprintln(b.out, "Select a scan to see its details.")
	}
}
