// Package overdue decides whether an actively worked ticket has passed
// its resolution deadline.
package overdue

import (
	"time"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
)

// IsOverdueAndActive reports whether ticket is assigned or in progress and
// now is strictly after its deadline. Open tickets are never overdue: the
// clock only counts against staff once someone owns the ticket.
//
// The stored ResolveDeadline is used when set; otherwise the deadline is
// derived with policy. A ticket with neither is never overdue.
func IsOverdueAndActive(ticket *models.Ticket, now time.Time, policy sla.Policy) bool {
	if ticket == nil || !ticket.Status.IsActive() {
		return false
	}
	deadline, ok := policy.EffectiveDeadline(ticket)
	if !ok {
		return false
	}
	return now.After(deadline)
}

// Evaluator binds the overdue rule to a policy and a clock.
type Evaluator struct {
	Policy sla.Policy
	Clock  clock.Clock
}

// NewEvaluator creates an Evaluator. A nil clock means the real clock.
func NewEvaluator(policy sla.Policy, c clock.Clock) *Evaluator {
	if c == nil {
		c = clock.Real()
	}
	return &Evaluator{Policy: policy, Clock: c}
}

// Overdue evaluates ticket at the clock's current instant.
func (e *Evaluator) Overdue(ticket *models.Ticket) bool {
	return IsOverdueAndActive(ticket, e.Clock.Now(), e.Policy)
}

// Filter returns the overdue tickets, preserving input order. All tickets
// are evaluated against the same instant.
func (e *Evaluator) Filter(tickets []*models.Ticket) []*models.Ticket {
	now := e.Clock.Now()
	var result []*models.Ticket
	for _, t := range tickets {
		if IsOverdueAndActive(t, now, e.Policy) {
			result = append(result, t)
		}
	}
	return result
}

// Overdueness returns how far past the deadline ticket is at now, or zero
// if it is not overdue.
func Overdueness(ticket *models.Ticket, now time.Time, policy sla.Policy) time.Duration {
	if !IsOverdueAndActive(ticket, now, policy) {
		return 0
	}
	deadline, _ := policy.EffectiveDeadline(ticket)
	return now.Sub(deadline)
}
