package service

import (
	"context"
	"sort"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
)

const (
	// DueSoonWindow is how close a deadline must be to count as due soon.
	DueSoonWindow = 4 * time.Hour

	recentActivityLimit = 5
)

// DueSoonItem is an active ticket whose deadline falls within DueSoonWindow.
type DueSoonItem struct {
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	Deadline    time.Time `json:"deadline"`
	MinutesLeft int       `json:"minutes_left"`
}

// ActivityItem is one recent event on an active ticket.
type ActivityItem struct {
	Code    string           `json:"code"`
	Event   models.EventType `json:"event_type"`
	Actor   string           `json:"actor"`
	Age     string           `json:"age"`
	Summary string           `json:"summary"`
}

// StatusSummary is the desk dashboard.
type StatusSummary struct {
	ByStatus       map[models.Status]int `json:"by_status"`
	Active         int                   `json:"active"`
	Unassigned     int                   `json:"unassigned"`
	Overdue        int                   `json:"overdue"`
	DueSoon        []DueSoonItem         `json:"due_soon"`
	RecentActivity []ActivityItem        `json:"recent_activity"`
}

// Status returns counts per status together with the tickets that need
// attention next.
func (s *TicketService) Status(ctx context.Context) (*StatusSummary, error) {
	counts, err := s.store.CountTicketsByStatus(ctx)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to count tickets")
	}
	active, err := s.store.ListActiveTickets(ctx)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list active tickets")
	}

	now := s.clock.Now()
	summary := &StatusSummary{
		ByStatus:       make(map[models.Status]int, len(models.AllStatuses)),
		Active:         len(active),
		DueSoon:        []DueSoonItem{},
		RecentActivity: []ActivityItem{},
	}
	for _, st := range models.AllStatuses {
		summary.ByStatus[st] = counts[st]
	}
	summary.Unassigned = counts[models.StatusOpen]

	type recent struct {
		code  string
		event models.Event
	}
	var events []recent

	for _, t := range active {
		if s.IsOverdue(t, now) {
			summary.Overdue++
		} else if t.Status.IsActive() {
			if deadline, ok := s.policy.EffectiveDeadline(t); ok {
				if left := sla.Remaining(deadline, now); left <= DueSoonWindow {
					summary.DueSoon = append(summary.DueSoon, DueSoonItem{
						Code:        t.Code,
						Title:       t.Title,
						AssigneeID:  t.AssigneeID,
						Deadline:    deadline,
						MinutesLeft: int(left / time.Minute),
					})
				}
			}
		}
		if n := len(t.Events); n > 0 {
			events = append(events, recent{code: t.Code, event: t.Events[n-1]})
		}
	}

	sort.Slice(summary.DueSoon, func(i, j int) bool {
		return summary.DueSoon[i].Deadline.Before(summary.DueSoon[j].Deadline)
	})
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].event.Timestamp.After(events[j].event.Timestamp)
	})
	if len(events) > recentActivityLimit {
		events = events[:recentActivityLimit]
	}
	for _, r := range events {
		summary.RecentActivity = append(summary.RecentActivity, ActivityItem{
			Code:    r.code,
			Event:   r.event.Type,
			Actor:   r.event.Actor,
			Age:     common.FormatAge(r.event.Timestamp, now),
			Summary: r.event.Title,
		})
	}
	return summary, nil
}
