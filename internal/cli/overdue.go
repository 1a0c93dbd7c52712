package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/tasks"
)

var (
	overdueWatch    time.Duration
	autoCloseAfter  float64
	autoCloseDryRun bool
)

func init() {
	overdueCmd.Flags().DurationVar(&overdueWatch, "watch", 0, "Re-run the report at this interval until interrupted (e.g. 5m)")

	autoCloseCmd.Flags().Float64Var(&autoCloseAfter, "after", 0, "Grace period in hours (default sla.auto_close_hours)")
	autoCloseCmd.Flags().BoolVar(&autoCloseDryRun, "dry-run", false, "Show what would be closed")

	rootCmd.AddCommand(overdueCmd)
	rootCmd.AddCommand(autoCloseCmd)
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Report overdue tickets",
	Long: `List assigned and in-progress tickets whose deadline has passed, most
overdue first, with a count per assignee. Open tickets are never overdue.

Examples:
  campusdesk overdue
  campusdesk overdue --watch 5m`,
	Args: cobra.NoArgs,
	RunE: runOverdue,
}

func runOverdue(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if overdueWatch <= 0 {
		report, err := a.svc.OverdueReport(cmdContext(cmd))
		if err != nil {
			return err
		}
		return printOverdueReport(report)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = a.svc.OverdueReporter().RunDaemon(ctx, overdueWatch,
		func(r *tasks.OverdueReport) {
			if err := printOverdueReport(r); err != nil {
				a.log.Warn("print overdue report", zap.Error(err))
			}
		},
		func(err error) { a.log.Error("overdue sweep failed", zap.Error(err)) },
	)
	if err == context.Canceled {
		return nil
	}
	return err
}

func printOverdueReport(r *tasks.OverdueReport) error {
	if IsJSON() {
		return printJSON(r)
	}

	out := stdout()
	loc := GetConfig().Location()
	fmt.Fprintf(out, "Overdue at %s: %d of %d active tickets\n", common.FormatInstant(r.GeneratedAt, loc), len(r.Items), r.Checked)
	if len(r.Items) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%-8s %-10s %-12s %-16s %s\n", "CODE", "LATE", "ASSIGNEE", "DEADLINE", "TITLE")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, item := range r.Items {
		late := common.FormatMinutes(int(item.OverdueBy / time.Minute))
		fmt.Fprintf(out, "%-8s %s %-12s %-16s %s\n",
			item.Ticket.Code,
			colorize(padRight(late, 10), ansiRed),
			truncate(orDash(item.Ticket.AssigneeID), 12),
			common.ToCivil(item.Deadline, loc).String()[:16],
			truncate(item.Ticket.Title, 36),
		)
	}

	assignees := make([]string, 0, len(r.ByAssignee))
	for id := range r.ByAssignee {
		assignees = append(assignees, id)
	}
	sort.Strings(assignees)
	fmt.Fprintln(out)
	for _, id := range assignees {
		fmt.Fprintf(out, "  %-16s %d\n", id, r.ByAssignee[id])
	}
	return nil
}

var autoCloseCmd = &cobra.Command{
	Use:   "auto-close",
	Short: "Close resolved tickets the requester never confirmed",
	Long: `Close, as the system, every resolved ticket whose resolution is older than
the grace period. The grace period comes from --after or sla.auto_close_hours.

Examples:
  campusdesk auto-close --after 72 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runAutoClose,
}

func runAutoClose(cmd *cobra.Command, args []string) error {
	hours := autoCloseAfter
	if hours == 0 {
		hours = GetConfig().SLA.AutoCloseHours
	}
	if hours <= 0 {
		return ErrInvalidArgs("no grace period: pass --after or set sla.auto_close_hours")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	grace := time.Duration(hours * float64(time.Hour))
	summary, err := a.svc.AutoCloser(grace).CloseDue(cmdContext(cmd), autoCloseDryRun)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(summary)
	}

	for _, r := range summary.Results {
		if r.ErrorMessage != "" {
			OutputLine("  %s: %s", r.TicketCode, r.ErrorMessage)
		} else {
			OutputLine("  %s", r.TicketCode)
		}
	}
	if summary.DryRun {
		OutputLine("Would close %d tickets", summary.Processed)
		return nil
	}
	OutputLine("Closed %d of %d due tickets (%d errors)", summary.Closed, summary.Processed, summary.Errors)
	return nil
}
