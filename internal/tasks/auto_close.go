package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/models"
)

// ResolvedLister lists tickets waiting for requester confirmation.
type ResolvedLister interface {
	ListResolvedTickets(ctx context.Context) ([]*models.Ticket, error)
}

// CloseFunc closes one ticket as the system actor.
type CloseFunc func(ctx context.Context, ticket *models.Ticket) error

// AutoCloseResult records what happened to one ticket.
type AutoCloseResult struct {
	TicketCode   string `json:"ticket_code"`
	Closed       bool   `json:"closed"`
	ErrorMessage string `json:"error,omitempty"`
}

// AutoCloseSummary is the result of one auto-close sweep.
type AutoCloseSummary struct {
	Processed int                `json:"processed"`
	Closed    int                `json:"closed"`
	Errors    int                `json:"errors"`
	Results   []*AutoCloseResult `json:"results,omitempty"`
	DryRun    bool               `json:"dry_run"`
}

// AutoCloser closes resolved tickets the requester never confirmed once
// the grace period since resolution has elapsed.
type AutoCloser struct {
	lister ResolvedLister
	close  CloseFunc
	grace  time.Duration
	clock  clock.Clock
}

// NewAutoCloser creates a new AutoCloser.
func NewAutoCloser(lister ResolvedLister, closeFn CloseFunc, grace time.Duration, c clock.Clock) *AutoCloser {
	if c == nil {
		c = clock.Real()
	}
	return &AutoCloser{lister: lister, close: closeFn, grace: grace, clock: c}
}

// Due reports whether ticket has waited out the grace period at now.
func (a *AutoCloser) Due(ticket *models.Ticket, now time.Time) bool {
	if ticket.Status != models.StatusResolved || ticket.ResolvedAt == nil {
		return false
	}
	return !now.Before(ticket.ResolvedAt.Add(a.grace))
}

// CloseDue closes every resolved ticket past the grace period. A failure
// on one ticket is recorded and the sweep moves on.
func (a *AutoCloser) CloseDue(ctx context.Context, dryRun bool) (*AutoCloseSummary, error) {
	tickets, err := a.lister.ListResolvedTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved tickets: %w", err)
	}

	summary := &AutoCloseSummary{DryRun: dryRun}
	now := a.clock.Now()
	for _, t := range tickets {
		if !a.Due(t, now) {
			continue
		}
		summary.Processed++
		result := &AutoCloseResult{TicketCode: t.Code}
		summary.Results = append(summary.Results, result)

		if dryRun {
			continue
		}
		if err := a.close(ctx, t); err != nil {
			result.ErrorMessage = err.Error()
			summary.Errors++
			continue
		}
		result.Closed = true
		summary.Closed++
	}
	return summary, nil
}

// RunDaemon runs CloseDue every interval until ctx is done.
func (a *AutoCloser) RunDaemon(ctx context.Context, interval time.Duration, callback func(*AutoCloseSummary), onError func(error)) error {
	return runEvery(ctx, interval, func() {
		summary, err := a.CloseDue(ctx, false)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if callback != nil {
			callback(summary)
		}
	})
}
