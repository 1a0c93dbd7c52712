package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/service"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quick status overview",
	Long: `Display a dashboard overview of the help desk.

Shows:
  - Ticket counts per status
  - Unassigned and overdue counts
  - Worked tickets due within the next 4 hours
  - Recent activity on active tickets`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.svc.Status(cmdContext(cmd))
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(summary)
	}
	printStatus(summary)
	return nil
}

func printStatus(s *service.StatusSummary) {
	out := stdout()
	fmt.Fprintln(out, "campusdesk status")
	fmt.Fprintln(out, rule("="))
	fmt.Fprintln(out)

	for _, st := range models.AllStatuses {
		fmt.Fprintf(out, "%-22s %d\n", coloredStatus(st)+":", s.ByStatus[st])
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Unassigned:            %d\n", s.Unassigned)
	overdue := fmt.Sprint(s.Overdue)
	if s.Overdue > 0 {
		overdue = colorize(overdue, ansiRed)
	}
	fmt.Fprintf(out, "Overdue:               %s\n", overdue)

	if len(s.DueSoon) > 0 {
		fmt.Fprintln(out)
		for _, d := range s.DueSoon {
			fmt.Fprintf(out, "Due soon:              %s in %s (%s)\n",
				d.Code, common.FormatMinutes(d.MinutesLeft), orDash(d.AssigneeID))
		}
	}

	if len(s.RecentActivity) > 0 {
		section(out, "Recent activity")
		for _, r := range s.RecentActivity {
			fmt.Fprintf(out, "  %-8s %-10s %-12s %s\n", r.Code, r.Age, r.Event, truncate(r.Summary, 36))
		}
	}
}
