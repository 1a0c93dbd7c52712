package models

import (
	"fmt"
	"strings"
	"time"
)

// Actor identifies who triggers a transition or mutation.
type Actor struct {
	ID   string    `json:"id"`
	Role ActorRole `json:"role"`
}

// String returns "role:id", or just the role for anonymous system actors.
func (a Actor) String() string {
	if a.ID == "" {
		return string(a.Role)
	}
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}

// SystemActor is the actor used for automatic assignment and closing.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// Event is one entry of a ticket's append-only lifecycle log.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"event_type"`
	Actor       string    `json:"actor"`
	ActorRole   ActorRole `json:"actor_role"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}

// Feedback is the requester's rating of a resolved ticket.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ticket is the canonical trouble ticket. Every upstream representation
// is converted into this shape once, at the boundary.
type Ticket struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Room        string `json:"room,omitempty"`

	RequesterID string `json:"requester_id"`
	AssigneeID  string `json:"assignee_id,omitempty"`

	Status Status `json:"status"`

	// SLA inputs. Exactly one allowance source is authoritative, chosen
	// by the deployment's sla.Policy mode.
	Priority               Priority `json:"priority,omitempty"`
	CategoryID             string   `json:"category_id,omitempty"`
	CategoryAllowanceHours float64  `json:"category_allowance_hours,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	ResolveDeadline time.Time  `json:"resolve_deadline"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`

	ResolutionNote string    `json:"resolution_note,omitempty"`
	CancelReason   string    `json:"cancel_reason,omitempty"`
	Feedback       *Feedback `json:"feedback,omitempty"`

	Events []Event `json:"events"`

	// Version is the stored revision this copy was loaded at. Saving a copy
	// whose version is no longer current fails.
	Version int `json:"-"`
}

// IsTerminal returns true if the ticket is closed or cancelled.
func (t *Ticket) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// LastEvent returns the most recent event, or nil if the log is empty.
func (t *Ticket) LastEvent() *Event {
	if len(t.Events) == 0 {
		return nil
	}
	return &t.Events[len(t.Events)-1]
}

// Clone returns a deep copy, so a failed mutation can be discarded
// without touching the caller's ticket.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		c.ResolvedAt = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		c.ClosedAt = &v
	}
	if t.Feedback != nil {
		v := *t.Feedback
		c.Feedback = &v
	}
	c.Events = make([]Event, len(t.Events))
	copy(c.Events, t.Events)
	return &c
}

// Validate checks the record invariants.
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if !t.ResolveDeadline.IsZero() && t.ResolveDeadline.Before(t.CreatedAt) {
		return fmt.Errorf("resolve deadline %s is before creation %s",
			t.ResolveDeadline.Format(time.RFC3339), t.CreatedAt.Format(time.RFC3339))
	}
	if t.ResolvedAt != nil && t.ClosedAt != nil && t.ClosedAt.Before(*t.ResolvedAt) {
		return fmt.Errorf("closed_at is before resolved_at")
	}
	if len(t.Events) > 0 {
		first := t.Events[0]
		if first.Type != EventCreated {
			return fmt.Errorf("first event must be %q, got %q", EventCreated, first.Type)
		}
		if !first.Timestamp.Equal(t.CreatedAt) {
			return fmt.Errorf("created event timestamp does not match created_at")
		}
		for i := 1; i < len(t.Events); i++ {
			if t.Events[i].Timestamp.Before(t.Events[i-1].Timestamp) {
				return fmt.Errorf("event %d is out of order", i)
			}
		}
	}
	if t.Feedback != nil && (t.Feedback.Rating < 1 || t.Feedback.Rating > 5) {
		return fmt.Errorf("feedback rating must be between 1 and 5")
	}
	return nil
}

// MaxAllowanceHours bounds any SLA allowance, about eleven years.
const MaxAllowanceHours = 100000

// Category groups tickets under an owning department and carries the
// category-driven SLA allowance.
type Category struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Department      string    `json:"department"`
	SLAResolveHours float64   `json:"sla_resolve_hours"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate validates the category fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name cannot be empty")
	}
	if c.SLAResolveHours <= 0 {
		return fmt.Errorf("sla_resolve_hours must be positive")
	}
	if c.SLAResolveHours > MaxAllowanceHours {
		return fmt.Errorf("sla_resolve_hours must be at most %d", MaxAllowanceHours)
	}
	return nil
}
