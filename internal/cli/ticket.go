package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/service"
	"github.com/campusdesk/campusdesk/internal/timeline"
)

// Ticket command flags
var (
	ticketTitle       string
	ticketDescription string
	ticketLocation    string
	ticketRoom        string
	ticketPriority    string
	ticketCategory    string
	ticketStatus      []string
	ticketRequester   string
	ticketAssignee    string
	ticketOverdue     bool
	ticketLimit       int
)

func init() {
	// ticket create
	ticketCreateCmd.Flags().StringVarP(&ticketTitle, "title", "t", "", "Ticket title (required)")
	ticketCreateCmd.Flags().StringVarP(&ticketDescription, "description", "d", "", "Detailed description")
	ticketCreateCmd.Flags().StringVarP(&ticketLocation, "location", "l", "", "Building or area")
	ticketCreateCmd.Flags().StringVarP(&ticketRoom, "room", "r", "", "Room number")
	ticketCreateCmd.Flags().StringVarP(&ticketPriority, "priority", "p", "", "Priority (urgent, high, medium, low; default medium)")
	ticketCreateCmd.Flags().StringVarP(&ticketCategory, "category", "c", "", "Category name or ID")
	ticketCreateCmd.MarkFlagRequired("title")

	// ticket list
	ticketListCmd.Flags().StringSliceVarP(&ticketStatus, "status", "s", nil, "Filter by status (comma-separated)")
	ticketListCmd.Flags().StringVar(&ticketRequester, "requester", "", "Filter by requester ID")
	ticketListCmd.Flags().StringVar(&ticketAssignee, "assignee", "", "Filter by assignee ID")
	ticketListCmd.Flags().StringVarP(&ticketCategory, "category", "c", "", "Filter by category ID")
	ticketListCmd.Flags().BoolVar(&ticketOverdue, "overdue", false, "Show only overdue tickets")
	ticketListCmd.Flags().IntVarP(&ticketLimit, "limit", "n", 50, "Max tickets to show (0 = no limit)")

	ticketCmd.AddCommand(ticketCreateCmd)
	ticketCmd.AddCommand(ticketListCmd)
	ticketCmd.AddCommand(ticketShowCmd)
	ticketCmd.AddCommand(ticketTimelineCmd)

	rootCmd.AddCommand(ticketCmd)
}

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Ticket management commands",
	Long: `Manage trouble tickets. A ticket is referenced by its code (TK-42, or just 42)
or by its ID.`,
}

// ticket create
var ticketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "File a new ticket",
	Long: `File a new ticket as the actor given by --as. The resolution deadline is
computed once, from the priority or the category depending on sla.mode.

If an open ticket with the same title at the same place exists, it is
reported as a possible duplicate; the new ticket is still created.

Examples:
  campusdesk --as student:sv001 ticket create -t "Projector broken" -l "Nhà A2" -r 301 -p high
  campusdesk --as student:sv001 ticket create -t "Leaking tap" -c Plumbing`,
	Args: cobra.NoArgs,
	RunE: runTicketCreate,
}

func runTicketCreate(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	in := service.CreateInput{
		Title:       ticketTitle,
		Description: ticketDescription,
		Location:    ticketLocation,
		Room:        ticketRoom,
		Category:    ticketCategory,
		Requester:   actor,
	}
	if ticketPriority != "" {
		p, err := models.ParsePriority(ticketPriority)
		if err != nil {
			return ErrInvalidArgs("%v", err)
		}
		in.Priority = p
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.Create(cmdContext(cmd), in)
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(result)
	}

	t := result.Ticket
	OutputLine("Created: %s", t.Code)
	OutputLine("Title: %s", t.Title)
	OutputLine("Status: %s", coloredStatus(t.Status))
	OutputLine("Deadline: %s", fmtTime(t.ResolveDeadline))
	if d := result.DuplicateCandidate; d != nil {
		OutputLine("")
		OutputLine("Possible duplicate of %s (%s): %s", d.Code, d.Status, d.Title)
	}
	return nil
}

// ticket list
var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets with filtering",
	Long: `List tickets, newest first, with optional filters.

Examples:
  campusdesk ticket list --status open,assigned
  campusdesk ticket list --assignee an.nguyen
  campusdesk ticket list --overdue`,
	Args: cobra.NoArgs,
	RunE: runTicketList,
}

func runTicketList(cmd *cobra.Command, args []string) error {
	opts := service.ListOptions{
		RequesterID: ticketRequester,
		AssigneeID:  ticketAssignee,
		CategoryID:  ticketCategory,
		OverdueOnly: ticketOverdue,
		Limit:       ticketLimit,
	}
	for _, raw := range ticketStatus {
		s, err := models.ParseStatus(raw)
		if err != nil {
			return ErrInvalidArgs("%v", err)
		}
		opts.Statuses = append(opts.Statuses, s)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tickets, err := a.svc.List(cmdContext(cmd), opts)
	if err != nil {
		return err
	}

	if IsJSON() {
		if tickets == nil {
			tickets = []*models.Ticket{}
		}
		return printJSON(tickets)
	}

	if len(tickets) == 0 {
		OutputLine("No tickets found.")
		return nil
	}

	now := a.svc.Now()
	out := stdout()
	fmt.Fprintf(out, "%-8s %-12s %-7s %-16s %-12s %s\n", "CODE", "STATUS", "PRI", "DEADLINE", "ASSIGNEE", "TITLE")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, t := range tickets {
		deadline := "-"
		if !t.ResolveDeadline.IsZero() {
			deadline = common.ToCivil(t.ResolveDeadline, a.svc.Location()).String()[:16]
		}
		line := fmt.Sprintf("%-8s %s %-7s %-16s %-12s %s",
			t.Code,
			colorize(padRight(string(t.Status), 12), statusColor(t.Status)),
			orDash(string(t.Priority)),
			deadline,
			truncate(orDash(t.AssigneeID), 12),
			truncate(t.Title, 40),
		)
		if mark := overdueMark(a.svc.IsOverdue(t, now)); mark != "" {
			line += "  " + mark
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// ticket show
var ticketShowCmd = &cobra.Command{
	Use:   "show <TICKET>",
	Short: "Show ticket details",
	Long: `Display a ticket with its deadline, overdue state, timeline summary and
the transitions it can take next.

Examples:
  campusdesk ticket show TK-42`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketShow,
}

func runTicketShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.svc.View(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(view)
	}

	t := view.Ticket
	out := stdout()
	fmt.Fprintln(out, rule("="))
	fmt.Fprintf(out, "%s: %s\n", t.Code, t.Title)
	fmt.Fprintln(out, rule("="))
	fmt.Fprintln(out)
	status := coloredStatus(t.Status)
	if view.IsOverdue {
		status += "  " + overdueMark(true)
	}
	fmt.Fprintf(out, "Status:      %s\n", status)
	fmt.Fprintf(out, "Priority:    %s\n", orDash(string(t.Priority)))
	if t.CategoryID != "" {
		fmt.Fprintf(out, "Category:    %s (%s)\n", t.CategoryID, fmtHours(t.CategoryAllowanceHours))
	}
	fmt.Fprintf(out, "Place:       %s\n", place(t))
	fmt.Fprintf(out, "Requester:   %s\n", t.RequesterID)
	fmt.Fprintf(out, "Assignee:    %s\n", orDash(t.AssigneeID))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created:     %s\n", fmtTime(t.CreatedAt))
	if view.DeadlineCivil != nil {
		deadline := view.DeadlineCivil.String()
		if view.RemainingMinutes != nil {
			if m := *view.RemainingMinutes; m >= 0 {
				deadline += fmt.Sprintf(" (%s left)", common.FormatMinutes(m))
			} else {
				deadline += fmt.Sprintf(" (%s late)", common.FormatMinutes(-m))
			}
		}
		fmt.Fprintf(out, "Deadline:    %s\n", deadline)
	}
	if t.ResolvedAt != nil {
		fmt.Fprintf(out, "Resolved:    %s\n", fmtTimePtr(t.ResolvedAt))
	}
	if t.ClosedAt != nil {
		fmt.Fprintf(out, "Closed:      %s\n", fmtTimePtr(t.ClosedAt))
	}
	if view.ResponseTimeMinutes != nil {
		fmt.Fprintf(out, "Response:    %s\n", common.FormatMinutes(*view.ResponseTimeMinutes))
	}
	if view.ResolutionTimeMinutes != nil {
		fmt.Fprintf(out, "Resolution:  %s\n", common.FormatMinutes(*view.ResolutionTimeMinutes))
	}

	if t.Description != "" {
		section(out, "Description:")
		fmt.Fprintln(out, t.Description)
	}
	if t.ResolutionNote != "" {
		section(out, "Resolution note:")
		fmt.Fprintln(out, t.ResolutionNote)
	}
	if t.CancelReason != "" {
		section(out, "Cancel reason:")
		fmt.Fprintln(out, t.CancelReason)
	}
	if fb := t.Feedback; fb != nil {
		section(out, "Feedback:")
		fmt.Fprintf(out, "%s %d/5\n", strings.Repeat("*", fb.Rating), fb.Rating)
		if fb.Comment != "" {
			fmt.Fprintln(out, fb.Comment)
		}
	}
	if d := view.DuplicateCandidate; d != nil {
		section(out, "Possible duplicate:")
		fmt.Fprintf(out, "%s (%s): %s\n", d.Code, d.Status, d.Title)
	}
	if len(view.NextTransitions) > 0 {
		section(out, "Next:")
		for _, r := range view.NextTransitions {
			fmt.Fprintf(out, "  %s\n", r.Describe())
		}
	}
	return nil
}

// ticket timeline
var ticketTimelineCmd = &cobra.Command{
	Use:   "timeline <TICKET>",
	Short: "Show a ticket's event timeline",
	Long: `Show every event with the minutes since the previous one, plus response
time (created to first assignment) and resolution time (created to first
resolution).

Examples:
  campusdesk ticket timeline TK-42`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketTimeline,
}

func runTicketTimeline(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tl, err := a.svc.Timeline(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(tl)
	}

	printTimeline(tl)
	return nil
}

func printTimeline(tl timeline.Timeline) {
	out := stdout()
	if len(tl.Entries) == 0 {
		fmt.Fprintln(out, "No events.")
		return
	}
	fmt.Fprintf(out, "%-20s %-12s %-8s %-16s %s\n", "WHEN", "STATUS", "+MIN", "ACTOR", "EVENT")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, e := range tl.Entries {
		delta := "-"
		if e.DurationMinutes != nil {
			delta = fmt.Sprintf("+%d", *e.DurationMinutes)
		}
		fmt.Fprintf(out, "%-20s %-12s %-8s %-16s %s\n",
			common.ToCivil(e.Event.Timestamp, GetConfig().Location()).String(),
			e.DisplayStatus,
			delta,
			truncate(e.Event.Actor, 16),
			truncate(e.Event.Title, 40),
		)
	}
	fmt.Fprintf(out, "\nTotal: %s", common.FormatMinutes(tl.TotalMinutes()))
	if tl.ResponseTimeMinutes != nil {
		fmt.Fprintf(out, "  Response: %s", common.FormatMinutes(*tl.ResponseTimeMinutes))
	}
	if tl.ResolutionTimeMinutes != nil {
		fmt.Fprintf(out, "  Resolution: %s", common.FormatMinutes(*tl.ResolutionTimeMinutes))
	}
	fmt.Fprintln(out)
}
