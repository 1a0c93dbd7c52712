// Package tasks provides background task runners for campusdesk.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/overdue"
	"github.com/campusdesk/campusdesk/internal/sla"
)

// ActiveLister lists the tickets that are still being worked on.
type ActiveLister interface {
	ListActiveTickets(ctx context.Context) ([]*models.Ticket, error)
}

// OverdueItem describes one overdue ticket.
type OverdueItem struct {
	Ticket    *models.Ticket `json:"ticket"`
	Deadline  time.Time      `json:"deadline"`
	OverdueBy time.Duration  `json:"overdue_by"`
}

// OverdueReport is the result of one sweep.
type OverdueReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Checked     int            `json:"checked"`
	Items       []*OverdueItem `json:"items"`
	// ByAssignee counts overdue tickets per assignee.
	ByAssignee map[string]int `json:"by_assignee"`
}

// OverdueReporter sweeps active tickets and reports the overdue ones. It
// never changes a ticket.
type OverdueReporter struct {
	lister ActiveLister
	policy sla.Policy
	clock  clock.Clock
}

// NewOverdueReporter creates a new OverdueReporter.
func NewOverdueReporter(lister ActiveLister, policy sla.Policy, c clock.Clock) *OverdueReporter {
	if c == nil {
		c = clock.Real()
	}
	return &OverdueReporter{lister: lister, policy: policy, clock: c}
}

// Report evaluates every active ticket against a single instant. Items are
// ordered most overdue first.
func (r *OverdueReporter) Report(ctx context.Context) (*OverdueReport, error) {
	tickets, err := r.lister.ListActiveTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tickets: %w", err)
	}

	now := r.clock.Now()
	report := &OverdueReport{
		GeneratedAt: now,
		Checked:     len(tickets),
		Items:       []*OverdueItem{},
		ByAssignee:  map[string]int{},
	}
	for _, t := range tickets {
		if !overdue.IsOverdueAndActive(t, now, r.policy) {
			continue
		}
		deadline, _ := r.policy.EffectiveDeadline(t)
		report.Items = append(report.Items, &OverdueItem{
			Ticket:    t,
			Deadline:  deadline,
			OverdueBy: now.Sub(deadline),
		})
		report.ByAssignee[t.AssigneeID]++
	}

	sort.SliceStable(report.Items, func(i, j int) bool {
		return report.Items[i].OverdueBy > report.Items[j].OverdueBy
	})
	return report, nil
}

// RunDaemon runs the sweep every interval until ctx is done, passing each
// report to callback. Sweep errors are handed to onError and the loop
// continues.
func (r *OverdueReporter) RunDaemon(ctx context.Context, interval time.Duration, callback func(*OverdueReport), onError func(error)) error {
	return runEvery(ctx, interval, func() {
		report, err := r.Report(ctx)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if callback != nil {
			callback(report)
		}
	})
}

// runEvery calls fn immediately and then on every tick.
func runEvery(ctx context.Context, interval time.Duration, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}
