package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/google/uuid"
)

// TicketRepo provides database operations for tickets and their event logs.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo creates a new TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// TicketFilter defines filters for listing tickets.
type TicketFilter struct {
	Statuses    []models.Status
	RequesterID string
	AssigneeID  string
	CategoryID  string
	Limit       int
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const ticketColumns = `
	t.id, t.number, t.code, t.title, t.description, t.location, t.room,
	t.requester_id, t.assignee_id, t.status, t.priority,
	t.category_id, t.category_allowance_hours,
	t.created_at, t.resolve_deadline, t.resolved_at, t.closed_at,
	t.resolution_note, t.cancel_reason,
	t.feedback_rating, t.feedback_comment, t.feedback_submitted_at, t.feedback_updated_at,
	t.version
`

// Create inserts a new ticket together with its event log. The ticket gets
// a UUID if it has none. Its code is kept when set (imports), otherwise the
// next sequential TK-n code is assigned.
func (r *TicketRepo) Create(ctx context.Context, t *models.Ticket) error {
	if err := t.Validate(); err != nil {
		return errors.Validation("invalid ticket: %v", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		number, err := r.allocateNumber(ctx, tx, t.Code)
		if err != nil {
			return err
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Code == "" {
			t.Code = common.FormatTicketCode(number)
		}

		query := `
			INSERT INTO tickets (
				id, number, code, title, description, location, room,
				requester_id, assignee_id, status, priority,
				category_id, category_allowance_hours,
				created_at, resolve_deadline, resolved_at, closed_at,
				resolution_note, cancel_reason,
				feedback_rating, feedback_comment, feedback_submitted_at, feedback_updated_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		args := append([]interface{}{t.ID, number, t.Code}, ticketValues(t)...)
		args = append(args, FormatTime(time.Now()))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return errors.Validation("ticket %s already exists", t.Code)
			}
			return errors.WrapInternal(err, "failed to create ticket")
		}

		return insertEvents(ctx, tx, t, 0)
	})
}

// allocateNumber returns the sequence number for a new ticket: the number
// embedded in code when it parses as TK-n, otherwise max+1.
func (r *TicketRepo) allocateNumber(ctx context.Context, q querier, code string) (int, error) {
	if code != "" {
		if n, err := common.ParseTicketCode(code); err == nil {
			return n, nil
		}
	}
	var maxNum sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(number) FROM tickets`).Scan(&maxNum); err != nil {
		return 0, errors.WrapInternal(err, "failed to get next ticket number")
	}
	return int(maxNum.Int64) + 1, nil
}

// Save persists a mutated ticket: the row is updated and events beyond
// those already stored are appended, in one transaction. Stored events
// are never rewritten. The write only succeeds when the stored row is
// still at t.Version, so a copy loaded before another write cannot
// overwrite it.
func (r *TicketRepo) Save(ctx context.Context, t *models.Ticket) error {
	if t.ID == "" {
		return errors.Internal("ticket id is required")
	}
	if err := t.Validate(); err != nil {
		return errors.Validation("invalid ticket: %v", err)
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE tickets SET
				title = ?, description = ?, location = ?, room = ?,
				requester_id = ?, assignee_id = ?, status = ?, priority = ?,
				category_id = ?, category_allowance_hours = ?,
				created_at = ?, resolve_deadline = ?, resolved_at = ?, closed_at = ?,
				resolution_note = ?, cancel_reason = ?,
				feedback_rating = ?, feedback_comment = ?, feedback_submitted_at = ?, feedback_updated_at = ?,
				updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`
		args := append(ticketValues(t), FormatTime(time.Now()), t.ID, t.Version)
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.WrapInternal(err, "failed to update ticket")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return errors.WrapInternal(err, "failed to get rows affected")
		}
		if rows == 0 {
			var current int
			err := tx.QueryRowContext(ctx, `SELECT version FROM tickets WHERE id = ?`, t.ID).Scan(&current)
			if err == sql.ErrNoRows {
				return errors.NotFound("ticket %s not found", t.Code)
			}
			if err != nil {
				return errors.WrapInternal(err, "failed to read ticket version")
			}
			return errors.Validation("ticket %s was changed by another update (version %d, now %d)", t.Code, t.Version, current).
				WithSuggestion("Reload the ticket and try again.")
		}

		var stored int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticket_events WHERE ticket_id = ?`, t.ID).Scan(&stored); err != nil {
			return errors.WrapInternal(err, "failed to count events")
		}
		if len(t.Events) < stored {
			return errors.Internal("ticket %s has %d events but %d are stored; the log is append-only", t.Code, len(t.Events), stored)
		}
		return insertEvents(ctx, tx, t, stored)
	})
	if err != nil {
		return err
	}
	t.Version++
	return nil
}

// ticketValues returns the mutable column values in UPDATE order.
func ticketValues(t *models.Ticket) []interface{} {
	var rating interface{}
	var comment sql.NullString
	var submitted, updated interface{}
	if t.Feedback != nil {
		rating = t.Feedback.Rating
		comment = nullString(t.Feedback.Comment)
		submitted = formatOptionalTime(t.Feedback.SubmittedAt)
		updated = formatOptionalTime(t.Feedback.UpdatedAt)
	}
	return []interface{}{
		t.Title, nullString(t.Description), nullString(t.Location), nullString(t.Room),
		t.RequesterID, nullString(t.AssigneeID), t.Status, nullString(string(t.Priority)),
		nullString(t.CategoryID), t.CategoryAllowanceHours,
		FormatTime(t.CreatedAt), formatOptionalTime(t.ResolveDeadline), FormatTimePtr(t.ResolvedAt), FormatTimePtr(t.ClosedAt),
		nullString(t.ResolutionNote), nullString(t.CancelReason),
		rating, comment, submitted, updated,
	}
}

func insertEvents(ctx context.Context, tx *sql.Tx, t *models.Ticket, from int) error {
	query := `
		INSERT INTO ticket_events (id, ticket_id, seq, occurred_at, event_type, actor, actor_role, title, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := from; i < len(t.Events); i++ {
		e := &t.Events[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, query,
			e.ID, t.ID, i, FormatTime(e.Timestamp), e.Type, e.Actor, e.ActorRole, e.Title, nullString(e.Description),
		)
		if err != nil {
			return errors.WrapInternal(err, "failed to append event %d to %s", i, t.Code)
		}
	}
	return nil
}

// GetByID retrieves a ticket by ID. It returns nil, nil when missing.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	return r.getOne(ctx, `WHERE t.id = ?`, id)
}

// GetByCode retrieves a ticket by its code (e.g., "TK-42"), case-insensitively.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	return r.getOne(ctx, `WHERE t.code = ? COLLATE NOCASE`, strings.TrimSpace(code))
}

// GetByNumber retrieves a ticket by its sequence number.
func (r *TicketRepo) GetByNumber(ctx context.Context, number int) (*models.Ticket, error) {
	return r.getOne(ctx, `WHERE t.number = ?`, number)
}

func (r *TicketRepo) getOne(ctx context.Context, where string, arg interface{}) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t ` + where
	t, err := scanTicket(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadEvents(ctx, []*models.Ticket{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves tickets matching the given filter, ordered by number.
func (r *TicketRepo) List(ctx context.Context, filter TicketFilter) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE 1=1`
	args := []interface{}{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, s)
		}
		query += " AND t.status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if filter.RequesterID != "" {
		query += " AND t.requester_id = ?"
		args = append(args, filter.RequesterID)
	}
	if filter.AssigneeID != "" {
		query += " AND t.assignee_id = ?"
		args = append(args, filter.AssigneeID)
	}
	if filter.CategoryID != "" {
		query += " AND t.category_id = ?"
		args = append(args, filter.CategoryID)
	}

	query += " ORDER BY t.number"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list tickets")
	}

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.WrapInternal(err, "failed to iterate tickets")
	}
	// Release the single pooled connection before loading events.
	rows.Close()

	if err := r.loadEvents(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListActive returns every open, assigned or in-progress ticket.
func (r *TicketRepo) ListActive(ctx context.Context) ([]*models.Ticket, error) {
	return r.List(ctx, TicketFilter{Statuses: []models.Status{
		models.StatusOpen, models.StatusAssigned, models.StatusInProgress,
	}})
}

// CountByStatus counts tickets by status.
func (r *TicketRepo) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to count tickets")
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.WrapInternal(err, "failed to scan count")
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *TicketRepo) loadEvents(ctx context.Context, tickets []*models.Ticket) error {
	query := `
		SELECT id, occurred_at, event_type, actor, actor_role, title, description
		FROM ticket_events WHERE ticket_id = ? ORDER BY seq
	`
	for _, t := range tickets {
		events, err := func() ([]models.Event, error) {
			rows, err := r.db.QueryContext(ctx, query, t.ID)
			if err != nil {
				return nil, errors.WrapInternal(err, "failed to load events for %s", t.Code)
			}
			defer rows.Close()

			var events []models.Event
			for rows.Next() {
				var e models.Event
				var at, desc sql.NullString
				if err := rows.Scan(&e.ID, &at, &e.Type, &e.Actor, &e.ActorRole, &e.Title, &desc); err != nil {
					return nil, errors.WrapInternal(err, "failed to scan event")
				}
				ts, err := parseTime(at)
				if err != nil {
					return nil, fmt.Errorf("event %s: %w", e.ID, err)
				}
				e.Timestamp = ts
				e.Description = desc.String
				events = append(events, e)
			}
			return events, rows.Err()
		}()
		if err != nil {
			return err
		}
		t.Events = events
	}
	return nil
}

func scanTicket(s scanner) (*models.Ticket, error) {
	var t models.Ticket
	var number int
	var desc, location, room, assignee, priority, categoryID sql.NullString
	var createdAt, deadline, resolvedAt, closedAt sql.NullString
	var resolutionNote, cancelReason sql.NullString
	var rating sql.NullInt64
	var fbComment, fbSubmitted, fbUpdated sql.NullString

	err := s.Scan(
		&t.ID, &number, &t.Code, &t.Title, &desc, &location, &room,
		&t.RequesterID, &assignee, &t.Status, &priority,
		&categoryID, &t.CategoryAllowanceHours,
		&createdAt, &deadline, &resolvedAt, &closedAt,
		&resolutionNote, &cancelReason,
		&rating, &fbComment, &fbSubmitted, &fbUpdated,
		&t.Version,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to scan ticket")
	}

	t.Description = desc.String
	t.Location = location.String
	t.Room = room.String
	t.AssigneeID = assignee.String
	t.Priority = models.Priority(priority.String)
	t.CategoryID = categoryID.String
	t.ResolutionNote = resolutionNote.String
	t.CancelReason = cancelReason.String

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.ResolveDeadline, err = parseTime(deadline); err != nil {
		return nil, err
	}
	if t.ResolvedAt, err = parseTimePtr(resolvedAt); err != nil {
		return nil, err
	}
	if t.ClosedAt, err = parseTimePtr(closedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		fb := &models.Feedback{Rating: int(rating.Int64), Comment: fbComment.String}
		if fb.SubmittedAt, err = parseTime(fbSubmitted); err != nil {
			return nil, err
		}
		if fb.UpdatedAt, err = parseTime(fbUpdated); err != nil {
			return nil, err
		}
		t.Feedback = fb
	}
	return &t, nil
}

func (r *TicketRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapInternal(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapInternal(err, "failed to commit transaction")
	}
	return nil
}
