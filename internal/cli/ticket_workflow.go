package cli

import (
	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/service"
)

// Workflow command flags
var (
	assignTo     string
	resolveNote  string
	escalateTo   string
	escalateNote string
	cancelReason string
)

func init() {
	ticketAssignCmd.Flags().StringVar(&assignTo, "to", "", "Staff ID to assign (required)")
	ticketAssignCmd.MarkFlagRequired("to")

	ticketResolveCmd.Flags().StringVar(&resolveNote, "note", "", "What was done (required)")
	ticketResolveCmd.MarkFlagRequired("note")

	ticketEscalateCmd.Flags().StringVar(&escalateTo, "to", "", "Staff ID taking over (required)")
	ticketEscalateCmd.Flags().StringVar(&escalateNote, "reason", "", "Why the ticket is escalated")
	ticketEscalateCmd.MarkFlagRequired("to")

	ticketCancelCmd.Flags().StringVar(&cancelReason, "reason", "", "Cancel reason (required for requesters)")

	ticketCmd.AddCommand(ticketAssignCmd)
	ticketCmd.AddCommand(ticketStartCmd)
	ticketCmd.AddCommand(ticketResolveCmd)
	ticketCmd.AddCommand(ticketCloseCmd)
	ticketCmd.AddCommand(ticketCancelCmd)
	ticketCmd.AddCommand(ticketEscalateCmd)
}

var ticketAssignCmd = &cobra.Command{
	Use:   "assign <TICKET>",
	Short: "Assign or reassign a ticket to staff",
	Long: `Assign an open ticket, or reassign an assigned one. Admins only.

Examples:
  campusdesk --as admin:ops ticket assign TK-42 --to an.nguyen`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], func(a *app, actor models.Actor) (*service.TransitionResult, error) {
			return a.svc.Assign(cmdContext(cmd), args[0], actor, assignTo)
		})
	},
}

var ticketStartCmd = &cobra.Command{
	Use:   "start <TICKET>",
	Short: "Start work on an assigned ticket",
	Long: `Move an assigned ticket to in_progress. Only its assignee may do this.

Examples:
  campusdesk --as staff:an.nguyen ticket start TK-42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], func(a *app, actor models.Actor) (*service.TransitionResult, error) {
			return a.svc.Start(cmdContext(cmd), args[0], actor)
		})
	},
}

var ticketResolveCmd = &cobra.Command{
	Use:   "resolve <TICKET>",
	Short: "Resolve a ticket in progress",
	Long: `Mark an in-progress ticket resolved with a resolution note. Only its
assignee may do this.

Examples:
  campusdesk --as staff:an.nguyen ticket resolve TK-42 --note "Replaced the lamp"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], func(a *app, actor models.Actor) (*service.TransitionResult, error) {
			return a.svc.Resolve(cmdContext(cmd), args[0], actor, resolveNote)
		})
	},
}

var ticketCloseCmd = &cobra.Command{
	Use:   "close <TICKET>",
	Short: "Confirm a resolved ticket",
	Long: `Close a resolved ticket. The requester confirms the fix; the system closes
unconfirmed tickets after sla.auto_close_hours.

Examples:
  campusdesk --as student:sv001 ticket close TK-42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], func(a *app, actor models.Actor) (*service.TransitionResult, error) {
			return a.svc.Close(cmdContext(cmd), args[0], actor)
		})
	},
}

var ticketCancelCmd = &cobra.Command{
	Use:   "cancel <TICKET>",
	Short: "Cancel a ticket before it is resolved",
	Long: `Cancel an open, assigned or in-progress ticket. The requester must give a
reason; admins may cancel without one.

Examples:
  campusdesk --as student:sv001 ticket cancel TK-42 --reason "Fixed itself"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], func(a *app, actor models.Actor) (*service.TransitionResult, error) {
			return a.svc.Cancel(cmdContext(cmd), args[0], actor, cancelReason)
		})
	},
}

var ticketEscalateCmd = &cobra.Command{
	Use:   "escalate <TICKET>",
	Short: "Hand an in-progress ticket to another assignee",
	Long: `Escalate a ticket in progress: it returns to assigned under a different
staff member. Admins only. Open tickets are assigned, not escalated.

Examples:
  campusdesk --as admin:ops ticket escalate TK-42 --to binh.tran --reason "Needs electrician"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], func(a *app, actor models.Actor) (*service.TransitionResult, error) {
			return a.svc.Escalate(cmdContext(cmd), args[0], actor, escalateTo, escalateNote)
		})
	},
}

// runWorkflow runs one transition as the --as actor and prints the result.
func runWorkflow(cmd *cobra.Command, ref string, fn func(a *app, actor models.Actor) (*service.TransitionResult, error)) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(a, actor)
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(result)
	}

	t := result.Ticket
	OutputLine("%s: %s -> %s", t.Code, result.PreviousStatus, coloredStatus(t.Status))
	if t.AssigneeID != "" && t.Status == models.StatusAssigned {
		OutputLine("Assignee: %s", t.AssigneeID)
	}
	VerboseOutput("Event: %s at %s\n", result.Event.Title, fmtTime(result.Event.Timestamp))
	return nil
}
