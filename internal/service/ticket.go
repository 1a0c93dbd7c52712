package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/db"
	"github.com/campusdesk/campusdesk/internal/duplicate"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
	"github.com/campusdesk/campusdesk/internal/state"
	"go.uber.org/zap"
)

// CreateInput holds the fields of a new ticket.
type CreateInput struct {
	Title       string
	Description string
	Location    string
	Room        string
	Priority    models.Priority
	// Category is a category ID or name; optional in priority mode.
	Category  string
	Requester models.Actor
}

// CreateResult contains the created ticket and, when the new ticket looks
// like one already being handled, that ticket.
type CreateResult struct {
	Ticket             *models.Ticket `json:"ticket"`
	DuplicateCandidate *models.Ticket `json:"duplicate_candidate,omitempty"`
}

// TransitionResult contains the result of a status transition.
type TransitionResult struct {
	Ticket         *models.Ticket `json:"ticket"`
	Event          *models.Event  `json:"event"`
	PreviousStatus models.Status  `json:"previous_status"`
}

// RecomputeResult contains the result of an explicit deadline recomputation.
type RecomputeResult struct {
	Ticket           *models.Ticket `json:"ticket"`
	PreviousDeadline time.Time      `json:"previous_deadline"`
	Deadline         time.Time      `json:"deadline"`
}

// Create files a new ticket. The resolve deadline is fixed here from the
// SLA policy. A likely duplicate is reported but does not block creation.
func (s *TicketService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(in.Requester.ID) == "" {
		return nil, errors.Validation("requester is required")
	}
	if in.Requester.Role == models.RoleSystem {
		return nil, errors.Validation("tickets are filed by people, not the system")
	}
	if in.Priority != "" && !in.Priority.IsValid() {
		return nil, errors.Validation("invalid priority %q", in.Priority)
	}

	ticket := &models.Ticket{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Room:        strings.TrimSpace(in.Room),
		Priority:    in.Priority,
	}
	if ticket.Priority == "" && s.policy.Mode != sla.ModeCategory {
		ticket.Priority = models.PriorityMedium
	}

	if in.Category != "" {
		category, err := s.resolveCategory(ctx, in.Category)
		if err != nil {
			return nil, err
		}
		ticket.CategoryID = category.ID
		ticket.CategoryAllowanceHours = category.SLAResolveHours
	}

	if err := state.Open(ticket, in.Requester, s.clock.Now()); err != nil {
		return nil, err
	}
	deadline, err := s.policy.Deadline(ticket)
	if err != nil {
		return nil, err
	}
	ticket.ResolveDeadline = deadline

	active, err := s.store.ListActiveTickets(ctx)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list active tickets")
	}
	candidate := duplicate.FindDuplicate(ticket, active)

	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("ticket", ticket.Code),
		zap.String("requester", in.Requester.ID),
		zap.Time("deadline", ticket.ResolveDeadline),
	}
	if candidate != nil {
		fields = append(fields, zap.String("duplicate_of", candidate.Code))
	}
	s.log.Info("ticket created", fields...)

	return &CreateResult{Ticket: ticket, DuplicateCandidate: candidate}, nil
}

// Get resolves ref, a ticket ID or code, to a ticket.
func (s *TicketService) Get(ctx context.Context, ref string) (*models.Ticket, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.Validation("ticket reference is required")
	}

	ticket, err := s.store.GetTicketByID(ctx, ref)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to get ticket")
	}
	if ticket == nil {
		code := ref
		if n, perr := common.ParseTicketCode(ref); perr == nil {
			code = common.FormatTicketCode(n)
		}
		ticket, err = s.store.GetTicketByCode(ctx, code)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to get ticket")
		}
	}
	if ticket == nil {
		return nil, errors.NotFound("ticket %s not found", ref).
			WithSuggestion("Run 'campusdesk ticket list' to see available tickets.")
	}
	return ticket, nil
}

// ListOptions filters ticket listings.
type ListOptions struct {
	Statuses    []models.Status
	RequesterID string
	AssigneeID  string
	CategoryID  string
	OverdueOnly bool
	Limit       int
}

// List returns tickets matching opts.
func (s *TicketService) List(ctx context.Context, opts ListOptions) ([]*models.Ticket, error) {
	filter := db.TicketFilter{
		Statuses:    opts.Statuses,
		RequesterID: opts.RequesterID,
		AssigneeID:  opts.AssigneeID,
		CategoryID:  opts.CategoryID,
	}
	if !opts.OverdueOnly {
		filter.Limit = opts.Limit
	}
	tickets, err := s.store.ListTickets(ctx, filter)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list tickets")
	}
	if !opts.OverdueOnly {
		return tickets, nil
	}

	now := s.clock.Now()
	var result []*models.Ticket
	for _, t := range tickets {
		if s.IsOverdue(t, now) {
			result = append(result, t)
			if opts.Limit > 0 && len(result) == opts.Limit {
				break
			}
		}
	}
	return result, nil
}

// Transition applies one state machine transition to the ticket named by ref.
func (s *TicketService) Transition(ctx context.Context, ref string, req state.Request) (*TransitionResult, error) {
	ticket, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, ticket, req)
}

func (s *TicketService) transition(ctx context.Context, ticket *models.Ticket, req state.Request) (*TransitionResult, error) {
	work := ticket.Clone()
	from := work.Status
	event, err := s.machine.Apply(work, req, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTicket(ctx, work); err != nil {
		return nil, err
	}

	s.log.Info("ticket transitioned",
		zap.String("ticket", work.Code),
		zap.String("from", string(from)),
		zap.String("to", string(work.Status)),
		zap.String("actor", req.Actor.String()),
	)
	return &TransitionResult{Ticket: work, Event: event, PreviousStatus: from}, nil
}

// Assign moves an open ticket to assigned.
func (s *TicketService) Assign(ctx context.Context, ref string, actor models.Actor, assigneeID string) (*TransitionResult, error) {
	return s.Transition(ctx, ref, state.Request{To: models.StatusAssigned, Actor: actor, AssigneeID: assigneeID})
}

// Start records that the assignee began work.
func (s *TicketService) Start(ctx context.Context, ref string, actor models.Actor) (*TransitionResult, error) {
	return s.Transition(ctx, ref, state.Request{To: models.StatusInProgress, Actor: actor})
}

// Resolve marks the ticket resolved with a resolution note.
func (s *TicketService) Resolve(ctx context.Context, ref string, actor models.Actor, note string) (*TransitionResult, error) {
	return s.Transition(ctx, ref, state.Request{To: models.StatusResolved, Actor: actor, Note: note})
}

// Close confirms a resolved ticket.
func (s *TicketService) Close(ctx context.Context, ref string, actor models.Actor) (*TransitionResult, error) {
	return s.Transition(ctx, ref, state.Request{To: models.StatusClosed, Actor: actor})
}

// Cancel withdraws a ticket that has not been resolved.
func (s *TicketService) Cancel(ctx context.Context, ref string, actor models.Actor, reason string) (*TransitionResult, error) {
	return s.Transition(ctx, ref, state.Request{To: models.StatusCancelled, Actor: actor, Note: reason})
}

// Escalate reassigns an assigned or in-progress ticket to another staff
// member.
func (s *TicketService) Escalate(ctx context.Context, ref string, actor models.Actor, assigneeID, reason string) (*TransitionResult, error) {
	ticket, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !state.CanBeEscalated(ticket.Status) {
		return nil, errors.Validation("only assigned or in-progress tickets can be escalated (status is %s)", ticket.Status).
			WithSuggestion("Use 'campusdesk ticket assign' for open tickets.")
	}
	return s.transition(ctx, ticket, state.Request{
		To: models.StatusAssigned, Actor: actor, AssigneeID: assigneeID, Note: reason,
	})
}

// Comment appends a comment to the ticket's log.
func (s *TicketService) Comment(ctx context.Context, ref string, actor models.Actor, text string) (*models.Event, error) {
	var event *models.Event
	_, err := s.mutate(ctx, ref, func(t *models.Ticket, now time.Time) error {
		var err error
		event, err = state.AddComment(t, actor, text, now)
		return err
	})
	return event, err
}

// EditDescription rewrites the description of an open ticket.
func (s *TicketService) EditDescription(ctx context.Context, ref string, actor models.Actor, description string) (*models.Ticket, error) {
	return s.mutate(ctx, ref, func(t *models.Ticket, now time.Time) error {
		_, err := state.EditDescription(t, actor, description, now)
		return err
	})
}

// SubmitFeedback creates or edits the requester's rating.
func (s *TicketService) SubmitFeedback(ctx context.Context, ref string, actor models.Actor, rating int, comment string) (*models.Ticket, error) {
	return s.mutate(ctx, ref, func(t *models.Ticket, now time.Time) error {
		return state.AttachFeedback(t, actor, rating, comment, now)
	})
}

// ChangePriority edits the priority. The resolve deadline is left as it
// was; use RecomputeDeadline to move it.
func (s *TicketService) ChangePriority(ctx context.Context, ref string, actor models.Actor, priority models.Priority) (*models.Ticket, error) {
	if err := requireRole(actor, "change priority", models.RoleAdmin); err != nil {
		return nil, err
	}
	if !priority.IsValid() {
		return nil, errors.Validation("invalid priority %q", priority)
	}
	return s.mutate(ctx, ref, func(t *models.Ticket, _ time.Time) error {
		if t.IsTerminal() {
			return errors.Validation("ticket %s is %s; priority can no longer change", t.Code, t.Status)
		}
		t.Priority = priority
		return nil
	})
}

// RecomputeDeadline derives the resolve deadline again from the ticket's
// current priority or category allowance. In category mode the allowance
// is refreshed from the category first.
func (s *TicketService) RecomputeDeadline(ctx context.Context, ref string, actor models.Actor) (*RecomputeResult, error) {
	if err := requireRole(actor, "recompute deadlines", models.RoleAdmin); err != nil {
		return nil, err
	}
	ticket, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ticket.IsTerminal() {
		return nil, errors.Validation("ticket %s is %s; its deadline is final", ticket.Code, ticket.Status)
	}

	work := ticket.Clone()
	if work.CategoryID != "" {
		category, err := s.store.GetCategory(ctx, work.CategoryID)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to get category")
		}
		if category != nil {
			work.CategoryAllowanceHours = category.SLAResolveHours
		}
	}
	previous, err := sla.Recompute(work, s.policy)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTicket(ctx, work); err != nil {
		return nil, err
	}

	s.log.Info("deadline recomputed",
		zap.String("ticket", work.Code),
		zap.Time("previous", previous),
		zap.Time("deadline", work.ResolveDeadline),
		zap.String("actor", actor.String()),
	)
	return &RecomputeResult{Ticket: work, PreviousDeadline: previous, Deadline: work.ResolveDeadline}, nil
}

// mutate loads ref, applies fn to a copy and saves the copy. When fn fails
// nothing is written.
func (s *TicketService) mutate(ctx context.Context, ref string, fn func(t *models.Ticket, now time.Time) error) (*models.Ticket, error) {
	ticket, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	work := ticket.Clone()
	if err := fn(work, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveTicket(ctx, work); err != nil {
		return nil, err
	}
	s.log.Debug("ticket updated", zap.String("ticket", work.Code))
	return work, nil
}

func requireRole(actor models.Actor, action string, roles ...models.ActorRole) error {
	if slices.Contains(roles, actor.Role) {
		return nil
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return errors.Validation("only %s may %s", strings.Join(names, " or "), action)
}
