package cli

import (
	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/models"
)

var (
	editDescription string
	feedbackRating  int
	feedbackComment string
)

func init() {
	ticketEditCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description (required)")
	ticketEditCmd.MarkFlagRequired("description")

	ticketFeedbackCmd.Flags().IntVar(&feedbackRating, "rating", 0, "Rating from 1 to 5 (required)")
	ticketFeedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "Optional comment")
	ticketFeedbackCmd.MarkFlagRequired("rating")

	ticketCmd.AddCommand(ticketCommentCmd)
	ticketCmd.AddCommand(ticketEditCmd)
	ticketCmd.AddCommand(ticketPriorityCmd)
	ticketCmd.AddCommand(ticketRecomputeCmd)
	ticketCmd.AddCommand(ticketFeedbackCmd)
}

var ticketCommentCmd = &cobra.Command{
	Use:   "comment <TICKET> <TEXT>",
	Short: "Add a comment to a ticket",
	Long: `Append a comment event. Comments do not change the ticket's status and
are refused once the ticket is closed or cancelled.

Examples:
  campusdesk --as student:sv001 ticket comment TK-42 "Still flickering"`,
	Args: cobra.ExactArgs(2),
	RunE: runTicketComment,
}

func runTicketComment(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	event, err := a.svc.Comment(cmdContext(cmd), args[0], actor, args[1])
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(event)
	}
	OutputLine("Comment added to %s at %s", args[0], fmtTime(event.Timestamp))
	return nil
}

var ticketEditCmd = &cobra.Command{
	Use:   "edit <TICKET>",
	Short: "Edit a ticket's description",
	Long: `Replace the description. The requester may edit until the ticket is
assigned; admins may edit any non-terminal ticket.

Examples:
  campusdesk --as student:sv001 ticket edit TK-42 -d "Lamp in row 3 also out"`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketEdit,
}

func runTicketEdit(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.svc.EditDescription(cmdContext(cmd), args[0], actor, editDescription)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(t)
	}
	OutputLine("Updated description of %s", t.Code)
	return nil
}

var ticketPriorityCmd = &cobra.Command{
	Use:   "priority <TICKET> <PRIORITY>",
	Short: "Change a ticket's priority",
	Long: `Change the priority of a non-terminal ticket. Admins only. The deadline
is not moved; run recompute-deadline to apply the new allowance.

Examples:
  campusdesk --as admin:ops ticket priority TK-42 urgent`,
	Args: cobra.ExactArgs(2),
	RunE: runTicketPriority,
}

func runTicketPriority(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	p, err := models.ParsePriority(args[1])
	if err != nil {
		return ErrInvalidArgs("%v", err)
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.svc.ChangePriority(cmdContext(cmd), args[0], actor, p)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(t)
	}
	OutputLine("%s priority: %s", t.Code, t.Priority)
	OutputLine("Deadline unchanged: %s", fmtTime(t.ResolveDeadline))
	return nil
}

var ticketRecomputeCmd = &cobra.Command{
	Use:   "recompute-deadline <TICKET>",
	Short: "Recompute a ticket's deadline from its current SLA inputs",
	Long: `Recompute the resolution deadline from the creation time and the current
priority or category allowance. Admins only.

Examples:
  campusdesk --as admin:ops ticket recompute-deadline TK-42`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketRecompute,
}

func runTicketRecompute(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.RecomputeDeadline(cmdContext(cmd), args[0], actor)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(result)
	}
	OutputLine("%s deadline: %s -> %s", result.Ticket.Code, fmtTime(result.PreviousDeadline), fmtTime(result.Deadline))
	return nil
}

var ticketFeedbackCmd = &cobra.Command{
	Use:   "feedback <TICKET>",
	Short: "Rate a resolved or closed ticket",
	Long: `Submit or update the requester's rating (1-5) and comment. Only the
requester may do this, and only once the ticket is resolved.

Examples:
  campusdesk --as student:sv001 ticket feedback TK-42 --rating 5 --comment "Quick fix"`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketFeedback,
}

func runTicketFeedback(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.svc.SubmitFeedback(cmdContext(cmd), args[0], actor, feedbackRating, feedbackComment)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(t)
	}
	OutputLine("Feedback recorded for %s: %d/5", t.Code, t.Feedback.Rating)
	return nil
}
