package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/google/uuid"
)

// Open puts a freshly filed ticket into the open state: it stamps
// CreatedAt and writes the created event that starts every log.
func Open(ticket *models.Ticket, requester models.Actor, now time.Time) error {
	if len(ticket.Events) > 0 {
		return errors.Validation("ticket %s already has a history", ticket.Code)
	}
	if strings.TrimSpace(ticket.Title) == "" {
		return errors.Validation("title cannot be empty")
	}
	ticket.Status = models.StatusOpen
	ticket.CreatedAt = now
	ticket.RequesterID = requester.ID
	ticket.Events = []models.Event{{
		ID:          uuid.NewString(),
		Timestamp:   now,
		Type:        models.EventCreated,
		Actor:       requester.ID,
		ActorRole:   requester.Role,
		Title:       "Ticket created",
		Description: ticket.Title,
	}}
	return nil
}

// AddComment appends a free-text comment event. Comments do not change
// status and are refused once the ticket is terminal.
func AddComment(ticket *models.Ticket, actor models.Actor, text string, now time.Time) (*models.Event, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Validation("comment cannot be empty")
	}
	if ticket.IsTerminal() {
		return nil, errors.Validation("ticket %s is %s; comments are closed", ticket.Code, ticket.Status)
	}
	if err := checkChronology(ticket, now); err != nil {
		return nil, err
	}
	ticket.Events = append(ticket.Events, models.Event{
		ID:          uuid.NewString(),
		Timestamp:   now,
		Type:        models.EventComment,
		Actor:       actor.ID,
		ActorRole:   actor.Role,
		Title:       "Comment added",
		Description: text,
	})
	return ticket.LastEvent(), nil
}

// EditDescription lets the requester rewrite the description while the
// ticket is still unassigned.
func EditDescription(ticket *models.Ticket, actor models.Actor, description string, now time.Time) (*models.Event, error) {
	if actor.Role != models.RoleStudent || actor.ID != ticket.RequesterID {
		return nil, errors.Validation("only the requester may edit the description")
	}
	if ticket.Status != models.StatusOpen {
		return nil, errors.Validation("description can only be edited before assignment (status is %s)", ticket.Status)
	}
	if err := checkChronology(ticket, now); err != nil {
		return nil, err
	}
	ticket.Description = strings.TrimSpace(description)
	ticket.Events = append(ticket.Events, models.Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      models.EventUpdated,
		Actor:     actor.ID,
		ActorRole: actor.Role,
		Title:     "Description updated",
	})
	return ticket.LastEvent(), nil
}

// AttachFeedback creates or edits the requester's rating. It is allowed
// from resolved onwards, including after close, and never changes status
// or the event log.
func AttachFeedback(ticket *models.Ticket, actor models.Actor, rating int, comment string, now time.Time) error {
	if actor.Role != models.RoleStudent || actor.ID != ticket.RequesterID {
		return errors.Validation("only the requester may leave feedback")
	}
	if !ticket.Status.CanReceiveFeedback() {
		return errors.Validation("feedback is accepted once the ticket is resolved (status is %s)", ticket.Status)
	}
	if rating < 1 || rating > 5 {
		return errors.Validation("rating must be an integer from 1 to 5, got %d", rating)
	}

	comment = strings.TrimSpace(comment)
	if ticket.Feedback == nil {
		ticket.Feedback = &models.Feedback{Rating: rating, Comment: comment, SubmittedAt: now, UpdatedAt: now}
		return nil
	}
	ticket.Feedback.Rating = rating
	ticket.Feedback.Comment = comment
	ticket.Feedback.UpdatedAt = now
	return nil
}

// Describe renders a one-line summary of a rule, used by the CLI.
func (r TransitionRule) Describe() string {
	roles := make([]string, len(r.AllowedRoles))
	for i, role := range r.AllowedRoles {
		roles[i] = string(role)
	}
	return fmt.Sprintf("%s -> %s (%s): %s", r.From, r.To, strings.Join(roles, "/"), r.Description)
}
