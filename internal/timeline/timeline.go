// Package timeline turns a ticket's event log into the chronological view
// shown to requesters and staff, with per-step durations and the response
// and resolution aggregates.
package timeline

import (
	"math"
	"time"

	"github.com/campusdesk/campusdesk/internal/models"
)

// Display statuses. These are the labels the portal renders, which differ
// from the lifecycle statuses for historical reasons.
const (
	DisplayOpen         = "open"
	DisplayAcknowledged = "acknowledged"
	DisplayInProgress   = "in-progress"
	DisplayResolved     = "resolved"
	DisplayClosed       = "closed"
	DisplayCancelled    = "cancelled"
)

var displayStatus = map[models.EventType]string{
	models.EventCreated:    DisplayOpen,
	models.EventAssigned:   DisplayAcknowledged,
	models.EventReassigned: DisplayAcknowledged,
	models.EventInProgress: DisplayInProgress,
	models.EventResolved:   DisplayResolved,
	models.EventClosed:     DisplayClosed,
	models.EventCancelled:  DisplayCancelled,
	models.EventComment:    DisplayInProgress,
}

// DisplayStatus maps an event type to its rendered status. Unknown types
// render as open.
func DisplayStatus(t models.EventType) string {
	if s, ok := displayStatus[t]; ok {
		return s
	}
	return DisplayOpen
}

// Entry is one rendered timeline row.
type Entry struct {
	Event         models.Event `json:"event"`
	DisplayStatus string       `json:"display_status"`
	// DurationMinutes is the time since the previous entry; nil for the first.
	DurationMinutes *int `json:"duration_minutes,omitempty"`
}

// Timeline is the built view of an event log.
type Timeline struct {
	Entries               []Entry `json:"entries"`
	ResponseTimeMinutes   *int    `json:"response_time_minutes,omitempty"`
	ResolutionTimeMinutes *int    `json:"resolution_time_minutes,omitempty"`
}

// TotalMinutes returns the summed entry durations.
func (tl Timeline) TotalMinutes() int {
	total := 0
	for _, e := range tl.Entries {
		if e.DurationMinutes != nil {
			total += *e.DurationMinutes
		}
	}
	return total
}

// Build renders events, which must already be in chronological order.
//
// Durations use cumulative rounding: each entry's duration is the rounded
// offset from the first event minus the previous rounded offset, so the
// durations always add up to the rounded span of the whole log.
func Build(events []models.Event) Timeline {
	tl := Timeline{Entries: make([]Entry, 0, len(events))}
	if len(events) == 0 {
		return tl
	}

	origin := events[0].Timestamp
	prevOffset := 0
	for i, ev := range events {
		entry := Entry{Event: ev, DisplayStatus: DisplayStatus(ev.Type)}
		if i > 0 {
			offset := roundMinutes(ev.Timestamp.Sub(origin))
			d := offset - prevOffset
			entry.DurationMinutes = &d
			prevOffset = offset
		}
		tl.Entries = append(tl.Entries, entry)
	}

	if created, ok := firstOf(events, models.EventCreated); ok {
		if assigned, ok := firstOf(events, models.EventAssigned); ok {
			m := roundMinutes(assigned.Sub(created))
			tl.ResponseTimeMinutes = &m
		}
		if resolved, ok := firstOf(events, models.EventResolved); ok {
			m := roundMinutes(resolved.Sub(created))
			tl.ResolutionTimeMinutes = &m
		}
	}
	return tl
}

func firstOf(events []models.Event, t models.EventType) (time.Time, bool) {
	for _, ev := range events {
		if ev.Type == t {
			return ev.Timestamp, true
		}
	}
	return time.Time{}, false
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
