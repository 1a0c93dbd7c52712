// Package upstream converts ticket records from the legacy portal into the
// canonical models.Ticket.
//
// The portal produced two record shapes. The priority variant uses
// camelCase fields (id, code, location, room, priority, createdAt,
// resolveDeadline, events). The category variant comes from the document
// store (_id, ticketCode, locationName, roomNumber, category, created_at,
// slaDeadline, history). Each shape is decoded into its own struct and
// mapped exactly once; nothing downstream looks at raw records.
package upstream

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
)

// Variant identifies an upstream record shape.
type Variant string

const (
	VariantPriority Variant = "priority"
	VariantCategory Variant = "category"
)

// priorityRecord is the priority-driven shape.
type priorityRecord struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	Room            string          `json:"room"`
	RequesterID     string          `json:"requesterId"`
	AssigneeID      string          `json:"assigneeId"`
	Status          string          `json:"status"`
	Priority        string          `json:"priority"`
	CreatedAt       string          `json:"createdAt"`
	ResolveDeadline string          `json:"resolveDeadline"`
	ResolvedAt      string          `json:"resolvedAt"`
	ClosedAt        string          `json:"closedAt"`
	ResolutionNote  string          `json:"resolutionNote"`
	Rating          int             `json:"rating"`
	Feedback        string          `json:"feedback"`
	Events          []priorityEvent `json:"events"`
}

type priorityEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
	Actor       string `json:"actor"`
	ActorRole   string `json:"actorRole"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// categoryRecord is the category-driven shape.
type categoryRecord struct {
	ID           string          `json:"_id"`
	TicketCode   string          `json:"ticketCode"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	LocationName string          `json:"locationName"`
	RoomNumber   string          `json:"roomNumber"`
	Requester    string          `json:"requester"`
	Assignee     string          `json:"assignee"`
	Status       string          `json:"status"`
	Category     categoryRef     `json:"category"`
	CreatedAt    string          `json:"created_at"`
	SLADeadline  string          `json:"slaDeadline"`
	ResolvedAt   string          `json:"resolved_at"`
	ClosedAt     string          `json:"closed_at"`
	History      []categoryEvent `json:"history"`
	Feedback     *struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	} `json:"feedback"`
}

type categoryRef struct {
	ID              string  `json:"_id"`
	Name            string  `json:"name"`
	Department      string  `json:"department"`
	SLAResolveHours float64 `json:"slaResolveHours"`
}

type categoryEvent struct {
	ID     string `json:"_id"`
	Action string `json:"action"`
	At     string `json:"at"`
	By     string `json:"by"`
	Role   string `json:"role"`
	Title  string `json:"title"`
	Note   string `json:"note"`
}

// Detect reports which shape a single JSON object has. Records carrying
// any of _id, ticketCode, locationName or history are category records.
func Detect(data []byte) (Variant, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return "", errors.ParseError("ticket record is not a JSON object: %v", err)
	}
	for _, k := range []string{"_id", "ticketCode", "locationName", "roomNumber", "history", "slaDeadline"} {
		if _, ok := keys[k]; ok {
			return VariantCategory, nil
		}
	}
	return VariantPriority, nil
}

// Decode converts one upstream JSON record into a canonical ticket.
func Decode(data []byte) (*models.Ticket, error) {
	variant, err := Detect(data)
	if err != nil {
		return nil, err
	}
	switch variant {
	case VariantCategory:
		var rec categoryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.ParseError("decode category ticket: %v", err)
		}
		return rec.toTicket()
	default:
		var rec priorityRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.ParseError("decode priority ticket: %v", err)
		}
		return rec.toTicket()
	}
}

// DecodeMany accepts a single record or a JSON array of records, in either
// shape or mixed.
func DecodeMany(data []byte) ([]*models.Ticket, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.ParseError("no ticket records in input")
	}
	if trimmed[0] != '[' {
		t, err := Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return []*models.Ticket{t}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, errors.ParseError("decode ticket list: %v", err)
	}
	tickets := make([]*models.Ticket, 0, len(raws))
	for i, raw := range raws {
		t, err := Decode(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.GetKind(err), "record %d", i)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (r priorityRecord) toTicket() (*models.Ticket, error) {
	t := &models.Ticket{
		ID:             r.ID,
		Code:           strings.TrimSpace(r.Code),
		Title:          strings.TrimSpace(r.Title),
		Description:    r.Description,
		Location:       strings.TrimSpace(r.Location),
		Room:           strings.TrimSpace(r.Room),
		RequesterID:    r.RequesterID,
		AssigneeID:     r.AssigneeID,
		ResolutionNote: r.ResolutionNote,
	}

	var m mapper
	t.Status = m.status(r.Status)
	t.Priority = m.priority(r.Priority)
	t.CreatedAt = m.required("createdAt", r.CreatedAt)
	t.ResolveDeadline = m.optional("resolveDeadline", r.ResolveDeadline)
	t.ResolvedAt = m.optionalPtr("resolvedAt", r.ResolvedAt)
	t.ClosedAt = m.optionalPtr("closedAt", r.ClosedAt)
	for _, e := range r.Events {
		t.Events = append(t.Events, models.Event{
			ID:          e.ID,
			Timestamp:   m.required("events.timestamp", e.Timestamp),
			Type:        eventType(e.Type),
			Actor:       e.Actor,
			ActorRole:   m.role(e.ActorRole),
			Title:       e.Title,
			Description: e.Description,
		})
	}
	if r.Rating > 0 {
		t.Feedback = &models.Feedback{Rating: r.Rating, Comment: r.Feedback}
	}
	if m.err != nil {
		return nil, m.err
	}
	return finish(t)
}

func (r categoryRecord) toTicket() (*models.Ticket, error) {
	t := &models.Ticket{
		ID:                     r.ID,
		Code:                   strings.TrimSpace(r.TicketCode),
		Title:                  strings.TrimSpace(r.Title),
		Description:            r.Description,
		Location:               strings.TrimSpace(r.LocationName),
		Room:                   strings.TrimSpace(r.RoomNumber),
		RequesterID:            r.Requester,
		AssigneeID:             r.Assignee,
		CategoryID:             r.Category.ID,
		CategoryAllowanceHours: r.Category.SLAResolveHours,
	}

	var m mapper
	t.Status = m.status(r.Status)
	t.CreatedAt = m.required("created_at", r.CreatedAt)
	t.ResolveDeadline = m.optional("slaDeadline", r.SLADeadline)
	t.ResolvedAt = m.optionalPtr("resolved_at", r.ResolvedAt)
	t.ClosedAt = m.optionalPtr("closed_at", r.ClosedAt)
	for _, h := range r.History {
		t.Events = append(t.Events, models.Event{
			ID:          h.ID,
			Timestamp:   m.required("history.at", h.At),
			Type:        eventType(h.Action),
			Actor:       h.By,
			ActorRole:   m.role(h.Role),
			Title:       h.Title,
			Description: h.Note,
		})
	}
	if r.Feedback != nil && r.Feedback.Rating > 0 {
		t.Feedback = &models.Feedback{Rating: r.Feedback.Rating, Comment: r.Feedback.Comment}
	}
	if m.err != nil {
		return nil, m.err
	}
	return finish(t)
}

// finish fills derived fields and validates the record invariants.
func finish(t *models.Ticket) (*models.Ticket, error) {
	if t.Status == "" {
		t.Status = models.StatusOpen
	}
	slices.SortStableFunc(t.Events, func(a, b models.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if len(t.Events) == 0 || t.Events[0].Type != models.EventCreated {
		created := models.Event{
			Timestamp: t.CreatedAt,
			Type:      models.EventCreated,
			Actor:     t.RequesterID,
			ActorRole: models.RoleStudent,
			Title:     "Ticket created",
		}
		t.Events = append([]models.Event{created}, t.Events...)
	}
	if t.Feedback != nil {
		at := t.CreatedAt
		if t.ResolvedAt != nil {
			at = *t.ResolvedAt
		}
		t.Feedback.SubmittedAt = at
		t.Feedback.UpdatedAt = at
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Validation("ticket %s: %v", t.Code, err)
	}
	return t, nil
}

// mapper collects the first conversion error so field mapping reads
// straight through.
type mapper struct {
	err error
}

func (m *mapper) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *mapper) required(field, raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		m.fail(errors.ParseError("missing timestamp %s", field))
		return time.Time{}
	}
	return m.optional(field, raw)
}

func (m *mapper) optional(field, raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}
	}
	t, err := common.NormalizeTimestamp(raw)
	if err != nil {
		m.fail(errors.Wrap(err, errors.KindParse, "field %s", field))
		return time.Time{}
	}
	return t
}

func (m *mapper) optionalPtr(field, raw string) *time.Time {
	t := m.optional(field, raw)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (m *mapper) status(raw string) models.Status {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s, err := models.ParseStatus(raw)
	if err != nil {
		m.fail(errors.ParseError("%v", err))
	}
	return s
}

func (m *mapper) priority(raw string) models.Priority {
	p, err := models.ParsePriority(raw)
	if err != nil {
		m.fail(errors.ParseError("%v", err))
	}
	return p
}

// role tolerates unknown roles in imported history; they are stored empty.
func (m *mapper) role(raw string) models.ActorRole {
	r, err := models.ParseActorRole(raw)
	if err != nil {
		return ""
	}
	return r
}

// eventType maps portal action names onto event types. Unrecognized
// actions are kept verbatim.
func eventType(raw string) models.EventType {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	switch normalized {
	case "open", "create":
		return models.EventCreated
	case "acknowledged", "acknowledge", "assign":
		return models.EventAssigned
	case "reassign", "escalated":
		return models.EventReassigned
	case "start", "started":
		return models.EventInProgress
	case "resolve":
		return models.EventResolved
	case "close":
		return models.EventClosed
	case "cancel", "canceled":
		return models.EventCancelled
	case "commented":
		return models.EventComment
	}
	return models.EventType(normalized)
}
