package service

import (
	"context"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/duplicate"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/overdue"
	"github.com/campusdesk/campusdesk/internal/sla"
	"github.com/campusdesk/campusdesk/internal/state"
	"github.com/campusdesk/campusdesk/internal/tasks"
	"github.com/campusdesk/campusdesk/internal/timeline"
	"go.uber.org/zap"
)

// TicketView is everything a ticket detail page renders.
type TicketView struct {
	Ticket                *models.Ticket    `json:"ticket"`
	IsOverdue             bool              `json:"is_overdue"`
	Timeline              timeline.Timeline `json:"timeline"`
	ResponseTimeMinutes   *int              `json:"response_time_minutes,omitempty"`
	ResolutionTimeMinutes *int              `json:"resolution_time_minutes,omitempty"`
	DuplicateCandidate    *models.Ticket    `json:"duplicate_candidate,omitempty"`
	DeadlineCivil         *common.Civil     `json:"deadline_civil,omitempty"`
	// RemainingMinutes is negative once the deadline has passed.
	RemainingMinutes *int                    `json:"remaining_minutes,omitempty"`
	NextTransitions  []state.TransitionRule `json:"-"`
}

// View assembles the detail view of ref at the current instant.
func (s *TicketService) View(ctx context.Context, ref string) (*TicketView, error) {
	ticket, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	tl := timeline.Build(ticket.Events)
	view := &TicketView{
		Ticket:                ticket,
		IsOverdue:             s.IsOverdue(ticket, now),
		Timeline:              tl,
		ResponseTimeMinutes:   tl.ResponseTimeMinutes,
		ResolutionTimeMinutes: tl.ResolutionTimeMinutes,
		NextTransitions:       s.machine.ValidTransitions(ticket.Status),
	}

	if deadline, ok := s.policy.EffectiveDeadline(ticket); ok {
		civil := common.ToCivil(deadline, s.loc)
		view.DeadlineCivil = &civil
		if !ticket.IsTerminal() && ticket.Status != models.StatusResolved {
			remaining := int(sla.Remaining(deadline, now) / time.Minute)
			view.RemainingMinutes = &remaining
		}
	}

	if ticket.Status.IsOpenForWork() {
		active, err := s.store.ListActiveTickets(ctx)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to list active tickets")
		}
		view.DuplicateCandidate = duplicate.FindDuplicate(ticket, active)
	}
	return view, nil
}

// Timeline builds the timeline of ref.
func (s *TicketService) Timeline(ctx context.Context, ref string) (timeline.Timeline, error) {
	ticket, err := s.Get(ctx, ref)
	if err != nil {
		return timeline.Timeline{}, err
	}
	return timeline.Build(ticket.Events), nil
}

// IsOverdue applies the overdue rule with the service's SLA policy.
func (s *TicketService) IsOverdue(ticket *models.Ticket, now time.Time) bool {
	return overdue.IsOverdueAndActive(ticket, now, s.policy)
}

// OverdueReport sweeps the active tickets for overdue ones.
func (s *TicketService) OverdueReport(ctx context.Context) (*tasks.OverdueReport, error) {
	report, err := s.OverdueReporter().Report(ctx)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to build overdue report")
	}
	return report, nil
}

// OverdueReporter returns a reporter over the service's store, policy and clock.
func (s *TicketService) OverdueReporter() *tasks.OverdueReporter {
	return tasks.NewOverdueReporter(s.store, s.policy, s.clock)
}

// AutoCloser returns a task that closes resolved tickets as the system
// actor once grace has passed since resolution.
func (s *TicketService) AutoCloser(grace time.Duration) *tasks.AutoCloser {
	return tasks.NewAutoCloser(s.store, s.closeResolved, grace, s.clock)
}

// closeResolved closes the stored ticket behind t. The sweep's copy may be
// stale, so the ticket is read again and written against that read.
func (s *TicketService) closeResolved(ctx context.Context, t *models.Ticket) error {
	_, err := s.Transition(ctx, t.ID, state.Request{To: models.StatusClosed, Actor: models.SystemActor})
	if err != nil {
		s.log.Warn("auto-close failed", zap.String("ticket", t.Code), zap.Error(err))
	}
	return err
}
