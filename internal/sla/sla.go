// Package sla computes ticket resolution deadlines.
//
// A deadline is createdAt plus an allowance in hours, added as elapsed
// time with no calendar or DST handling. It is computed once when the
// ticket is created; Recompute is the only way to move it later.
package sla

import (
	"math"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
)

// Mode selects which allowance source is authoritative.
type Mode string

const (
	// ModePriority uses the per-priority hour table.
	ModePriority Mode = "priority"
	// ModeCategory uses the ticket category's configured hours and ignores priority.
	ModeCategory Mode = "category"
)

// IsValid returns true if the mode is known.
func (m Mode) IsValid() bool {
	return m == ModePriority || m == ModeCategory
}

// DefaultPriorityHours is the allowance table used in priority mode.
var DefaultPriorityHours = map[models.Priority]float64{
	models.PriorityUrgent: 4,
	models.PriorityHigh:   24,
	models.PriorityMedium: 48,
	models.PriorityLow:    72,
}

// ComputeDeadline returns createdAt + allowanceHours.
func ComputeDeadline(createdAt time.Time, allowanceHours float64) (time.Time, error) {
	if math.IsNaN(allowanceHours) || math.IsInf(allowanceHours, 0) || allowanceHours < 0 {
		return time.Time{}, errors.Validation("allowance hours must be a non-negative number, got %v", allowanceHours)
	}
	if allowanceHours > models.MaxAllowanceHours {
		return time.Time{}, errors.Validation("allowance hours must be at most %d, got %v", models.MaxAllowanceHours, allowanceHours)
	}
	deadline := createdAt.Add(time.Duration(allowanceHours * float64(time.Hour)))
	if deadline.Before(createdAt) {
		return time.Time{}, errors.Validation("allowance of %v hours overflows the deadline", allowanceHours)
	}
	return deadline, nil
}

// Policy decides the allowance for a ticket.
type Policy struct {
	Mode          Mode
	PriorityHours map[models.Priority]float64
}

// DefaultPolicy returns the priority-driven policy with the default table.
func DefaultPolicy() Policy {
	return Policy{Mode: ModePriority, PriorityHours: DefaultPriorityHours}
}

// AllowanceHours returns the resolution budget for ticket under p.
func (p Policy) AllowanceHours(ticket *models.Ticket) (float64, error) {
	switch p.Mode {
	case ModeCategory:
		if ticket.CategoryAllowanceHours <= 0 {
			return 0, errors.Validation("ticket has no category allowance").
				WithDetails("category_id", ticket.CategoryID)
		}
		return ticket.CategoryAllowanceHours, nil
	case ModePriority, "":
		table := p.PriorityHours
		if table == nil {
			table = DefaultPriorityHours
		}
		hours, ok := table[ticket.Priority]
		if !ok {
			return 0, errors.Validation("no SLA allowance for priority %q", ticket.Priority)
		}
		return hours, nil
	default:
		return 0, errors.Validation("unknown SLA mode %q", p.Mode)
	}
}

// Deadline computes the resolve deadline for ticket from its creation instant.
func (p Policy) Deadline(ticket *models.Ticket) (time.Time, error) {
	hours, err := p.AllowanceHours(ticket)
	if err != nil {
		return time.Time{}, err
	}
	return ComputeDeadline(ticket.CreatedAt, hours)
}

// EffectiveDeadline returns the stored deadline if set, otherwise the one
// p derives. ok is false when neither is available.
func (p Policy) EffectiveDeadline(ticket *models.Ticket) (deadline time.Time, ok bool) {
	if !ticket.ResolveDeadline.IsZero() {
		return ticket.ResolveDeadline, true
	}
	d, err := p.Deadline(ticket)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Recompute sets ticket.ResolveDeadline from the current allowance inputs
// and returns the previous value. Callers invoke it explicitly; editing
// priority or category alone never moves a deadline.
func Recompute(ticket *models.Ticket, p Policy) (previous time.Time, err error) {
	d, err := p.Deadline(ticket)
	if err != nil {
		return time.Time{}, err
	}
	previous = ticket.ResolveDeadline
	ticket.ResolveDeadline = d
	return previous, nil
}

// Remaining returns the time left until deadline; negative once it has passed.
func Remaining(deadline, now time.Time) time.Duration {
	return deadline.Sub(now)
}
