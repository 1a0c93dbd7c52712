// Package state implements the ticket status state machine for campusdesk.
package state

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/google/uuid"
)

// NoteRule says when a transition must carry a note.
type NoteRule int

const (
	NoteOptional      NoteRule = iota
	NoteRequired               // always required (resolution note)
	NoteFromRequester          // required when the requester triggers it (cancel reason)
)

// Request is a transition request against a ticket.
type Request struct {
	To         models.Status
	Actor      models.Actor
	AssigneeID string // assign and escalate only
	Note       string // resolution note, cancel reason or escalation reason
}

// TransitionRule defines a valid state transition and its requirements.
type TransitionRule struct {
	From         models.Status
	To           models.Status
	AllowedRoles []models.ActorRole
	Note         NoteRule
	// NeedsAssignee requires Request.AssigneeID to be set.
	NeedsAssignee bool
	// ByAssignee requires the acting staff member to be the ticket's assignee.
	ByAssignee bool
	// ByRequester requires a student actor to be the ticket's requester.
	ByRequester bool
	Event       models.EventType
	Description string
}

// validTransitions defines all valid state transitions.
var validTransitions = []TransitionRule{
	// open → assigned (auto-assign or manual)
	{
		From:          models.StatusOpen,
		To:            models.StatusAssigned,
		AllowedRoles:  []models.ActorRole{models.RoleSystem, models.RoleAdmin},
		NeedsAssignee: true,
		Event:         models.EventAssigned,
		Description:   "Ticket assigned",
	},

	// assigned → in_progress (assignee starts work)
	{
		From:         models.StatusAssigned,
		To:           models.StatusInProgress,
		AllowedRoles: []models.ActorRole{models.RoleStaff},
		ByAssignee:   true,
		Event:        models.EventInProgress,
		Description:  "Work started",
	},

	// in_progress → resolved (assignee resolves with a note)
	{
		From:         models.StatusInProgress,
		To:           models.StatusResolved,
		AllowedRoles: []models.ActorRole{models.RoleStaff},
		Note:         NoteRequired,
		ByAssignee:   true,
		Event:        models.EventResolved,
		Description:  "Ticket resolved",
	},

	// resolved → closed (system or requester confirmation)
	{
		From:         models.StatusResolved,
		To:           models.StatusClosed,
		AllowedRoles: []models.ActorRole{models.RoleSystem, models.RoleStudent},
		ByRequester:  true,
		Event:        models.EventClosed,
		Description:  "Ticket closed",
	},

	// escalation re-enters assigned under a different assignee
	{
		From:          models.StatusAssigned,
		To:            models.StatusAssigned,
		AllowedRoles:  []models.ActorRole{models.RoleAdmin},
		NeedsAssignee: true,
		Event:         models.EventReassigned,
		Description:   "Ticket escalated and reassigned",
	},
	{
		From:          models.StatusInProgress,
		To:            models.StatusAssigned,
		AllowedRoles:  []models.ActorRole{models.RoleAdmin},
		NeedsAssignee: true,
		Event:         models.EventReassigned,
		Description:   "Ticket escalated and reassigned",
	},

	// open/assigned/in_progress → cancelled
	{
		From:         models.StatusOpen,
		To:           models.StatusCancelled,
		AllowedRoles: []models.ActorRole{models.RoleStudent, models.RoleAdmin},
		Note:         NoteFromRequester,
		ByRequester:  true,
		Event:        models.EventCancelled,
		Description:  "Ticket cancelled",
	},
	{
		From:         models.StatusAssigned,
		To:           models.StatusCancelled,
		AllowedRoles: []models.ActorRole{models.RoleStudent, models.RoleAdmin},
		Note:         NoteFromRequester,
		ByRequester:  true,
		Event:        models.EventCancelled,
		Description:  "Ticket cancelled",
	},
	{
		From:         models.StatusInProgress,
		To:           models.StatusCancelled,
		AllowedRoles: []models.ActorRole{models.RoleStudent, models.RoleAdmin},
		Note:         NoteFromRequester,
		ByRequester:  true,
		Event:        models.EventCancelled,
		Description:  "Ticket cancelled",
	},
}

// transitionRuleMap provides fast lookup of transition rules.
var transitionRuleMap map[string]*TransitionRule

func init() {
	transitionRuleMap = make(map[string]*TransitionRule)
	for i := range validTransitions {
		rule := &validTransitions[i]
		transitionRuleMap[makeTransitionKey(rule.From, rule.To)] = rule
	}
}

func makeTransitionKey(from, to models.Status) string {
	return string(from) + "->" + string(to)
}

// Machine provides state machine operations for tickets.
type Machine struct{}

// NewMachine creates a new state machine instance.
func NewMachine() *Machine {
	return &Machine{}
}

// Rule returns the rule for a transition, or nil if invalid.
func (m *Machine) Rule(from, to models.Status) *TransitionRule {
	return transitionRuleMap[makeTransitionKey(from, to)]
}

// ValidTransitions returns all valid transitions from the given status.
func (m *Machine) ValidTransitions(from models.Status) []TransitionRule {
	var transitions []TransitionRule
	for _, rule := range validTransitions {
		if rule.From == from {
			transitions = append(transitions, rule)
		}
	}
	return transitions
}

// AllRules returns all defined transition rules.
func (m *Machine) AllRules() []TransitionRule {
	result := make([]TransitionRule, len(validTransitions))
	copy(result, validTransitions)
	return result
}

// CanTransition checks if req is allowed for ticket. It returns nil if the
// transition is allowed, or a validation error explaining why not.
func (m *Machine) CanTransition(ticket *models.Ticket, req Request) error {
	_, err := m.check(ticket, req)
	return err
}

func (m *Machine) check(ticket *models.Ticket, req Request) (*TransitionRule, error) {
	if ticket == nil {
		return nil, errors.Validation("ticket is nil")
	}

	from := ticket.Status
	if from.IsTerminal() {
		return nil, errors.Validation("ticket %s is %s; no further transitions are allowed", ticket.Code, from)
	}

	rule := m.Rule(from, req.To)
	if rule == nil {
		if from == req.To {
			return nil, errors.Validation("ticket is already in status %s", req.To)
		}
		return nil, errors.Validation("transition from %s to %s is not allowed", from, req.To).
			WithDetails("current_status", from)
	}

	if !slices.Contains(rule.AllowedRoles, req.Actor.Role) {
		return nil, errors.Validation("%s may not move a ticket from %s to %s", roleLabel(req.Actor.Role), from, req.To)
	}

	note := strings.TrimSpace(req.Note)
	switch rule.Note {
	case NoteRequired:
		if note == "" {
			return nil, errors.Validation("a note is required for transition from %s to %s", from, req.To)
		}
	case NoteFromRequester:
		if req.Actor.Role == models.RoleStudent && note == "" {
			return nil, errors.Validation("a reason is required when the requester cancels a ticket")
		}
	}

	if rule.NeedsAssignee {
		assignee := strings.TrimSpace(req.AssigneeID)
		if assignee == "" {
			return nil, errors.Validation("an assignee is required for transition from %s to %s", from, req.To)
		}
		if rule.Event == models.EventReassigned && assignee == ticket.AssigneeID {
			return nil, errors.Validation("escalation must reassign to a different staff member (currently %s)", ticket.AssigneeID)
		}
	}

	if rule.ByAssignee && req.Actor.ID != ticket.AssigneeID {
		return nil, errors.Validation("only the assignee (%s) may move this ticket to %s", ticket.AssigneeID, req.To)
	}

	if rule.ByRequester && req.Actor.Role == models.RoleStudent && req.Actor.ID != ticket.RequesterID {
		return nil, errors.Validation("only the requester may move this ticket to %s", req.To)
	}

	return rule, nil
}

// Apply validates req and, if allowed, performs it: the status write and
// exactly one appended event. A rejected request leaves ticket unchanged.
func (m *Machine) Apply(ticket *models.Ticket, req Request, now time.Time) (*models.Event, error) {
	rule, err := m.check(ticket, req)
	if err != nil {
		return nil, err
	}
	if err := checkChronology(ticket, now); err != nil {
		return nil, err
	}

	note := strings.TrimSpace(req.Note)
	event := models.Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      rule.Event,
		Actor:     req.Actor.ID,
		ActorRole: req.Actor.Role,
		Title:     rule.Description,
	}

	switch req.To {
	case models.StatusAssigned:
		assignee := strings.TrimSpace(req.AssigneeID)
		if rule.Event == models.EventReassigned {
			event.Description = fmt.Sprintf("Reassigned from %s to %s", ticket.AssigneeID, assignee)
			if note != "" {
				event.Description += ": " + note
			}
		} else {
			event.Description = fmt.Sprintf("Assigned to %s", assignee)
		}
		ticket.AssigneeID = assignee
	case models.StatusInProgress:
		event.Description = fmt.Sprintf("%s started working on the ticket", req.Actor.ID)
	case models.StatusResolved:
		event.Description = note
		ticket.ResolutionNote = note
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	case models.StatusClosed:
		if req.Actor.Role == models.RoleStudent {
			event.Description = "Requester confirmed the resolution"
		} else {
			event.Description = "Closed automatically"
		}
		closedAt := now
		ticket.ClosedAt = &closedAt
	case models.StatusCancelled:
		event.Description = note
		ticket.CancelReason = note
	}

	ticket.Status = req.To
	ticket.Events = append(ticket.Events, event)
	return &ticket.Events[len(ticket.Events)-1], nil
}

// checkChronology keeps the event log sorted by rejecting an append
// earlier than the latest event.
func checkChronology(ticket *models.Ticket, now time.Time) error {
	if last := ticket.LastEvent(); last != nil && now.Before(last.Timestamp) {
		return errors.Validation("event time %s is before the latest event at %s",
			now.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
	}
	return nil
}

func roleLabel(r models.ActorRole) string {
	if r == "" {
		return "an unidentified actor"
	}
	return string(r)
}

// CanBeCancelled returns true if tickets in this status can be cancelled.
func CanBeCancelled(status models.Status) bool {
	return status.IsOpenForWork()
}

// CanBeEscalated returns true if an admin can reassign tickets in this status.
func CanBeEscalated(status models.Status) bool {
	return status.IsActive()
}
