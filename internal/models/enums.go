// Package models defines the canonical domain types for campusdesk tickets.
package models

import (
	"fmt"
	"strings"
)

// Status represents the state of a ticket in its lifecycle.
//
//	open -> assigned -> in_progress -> resolved -> closed
//	open|assigned|in_progress -> cancelled
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed, StatusCancelled,
}

// IsValid returns true if the status is a valid ticket status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for closed and cancelled.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// IsActive returns true while staff is working the ticket. An unassigned
// open ticket is not active, which keeps it out of overdue reporting.
func (s Status) IsActive() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// IsOpenForWork returns true for statuses that have not reached a result yet:
// open, assigned and in_progress. These are the tickets a new report can duplicate.
func (s Status) IsOpenForWork() bool {
	return s == StatusOpen || s.IsActive()
}

// CanReceiveFeedback returns true once the ticket has been resolved.
func (s Status) CanReceiveFeedback() bool {
	return s == StatusResolved || s == StatusClosed
}

// ParseStatus parses a status string. Upstream display spellings are
// accepted: "in-progress" and "acknowledged" (the portal's label for assigned).
func ParseStatus(s string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "acknowledged" {
		return StatusAssigned, nil
	}
	if normalized == "canceled" {
		return StatusCancelled, nil
	}
	status := Status(normalized)
	if status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid status %q (valid: open, assigned, in_progress, resolved, closed, cancelled)", s)
}

// Priority represents the urgency of a ticket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid returns true if the priority is a valid ticket priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Order returns the sort order for the priority (lower is more urgent).
func (p Priority) Order() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 99
	}
}

// ParsePriority parses a priority string. The empty string is accepted and
// means the ticket's category drives its SLA.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" || p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q (valid: low, medium, high, urgent)", s)
}

// ActorRole represents who performed an action.
type ActorRole string

const (
	RoleStudent ActorRole = "student"
	RoleStaff   ActorRole = "staff"
	RoleAdmin   ActorRole = "admin"
	RoleSystem  ActorRole = "system"
)

// IsValid returns true if the role is valid.
func (r ActorRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// ParseActorRole parses a role string; "requester" and "user" mean student.
func ParseActorRole(s string) (ActorRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "requester", "user":
		return RoleStudent, nil
	}
	role := ActorRole(normalized)
	if role.IsValid() {
		return role, nil
	}
	return "", fmt.Errorf("invalid actor role %q (valid: student, staff, admin, system)", s)
}

// EventType is the kind of lifecycle event recorded on a ticket.
type EventType string

const (
	EventCreated    EventType = "created"
	EventAssigned   EventType = "assigned"
	EventReassigned EventType = "reassigned"
	EventInProgress EventType = "in_progress"
	EventResolved   EventType = "resolved"
	EventClosed     EventType = "closed"
	EventCancelled  EventType = "cancelled"
	EventComment    EventType = "comment"
	EventUpdated    EventType = "updated"
)

// IsValid returns true for the event types this engine writes. Imported
// histories may carry other types; those are kept and rendered as open.
func (e EventType) IsValid() bool {
	switch e {
	case EventCreated, EventAssigned, EventReassigned, EventInProgress, EventResolved,
		EventClosed, EventCancelled, EventComment, EventUpdated:
		return true
	}
	return false
}
