package service

import (
	"context"
	"testing"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
	"github.com/campusdesk/campusdesk/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketService_View(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()
	ticket := createTicket(t, svc, "Projector broken")

	clk.Advance(30 * time.Minute)
	_, err := svc.Assign(ctx, ticket.Code, models.SystemActor, "staff.an")
	require.NoError(t, err)

	clk.Set(t0.Add(5 * time.Hour))
	view, err := svc.View(ctx, ticket.Code)
	require.NoError(t, err)

	assert.True(t, view.IsOverdue)
	require.NotNil(t, view.ResponseTimeMinutes)
	assert.Equal(t, 30, *view.ResponseTimeMinutes)
	assert.Nil(t, view.ResolutionTimeMinutes)
	assert.Len(t, view.Timeline.Entries, 2)
	require.NotNil(t, view.RemainingMinutes)
	assert.Equal(t, -60, *view.RemainingMinutes)
	assert.Nil(t, view.DuplicateCandidate)
	assert.NotEmpty(t, view.NextTransitions)

	// 04:00Z is 11:00 in Indochina Time.
	require.NotNil(t, view.DeadlineCivil)
	assert.Equal(t, "2025-01-01 11:00:00", view.DeadlineCivil.String())
}

func TestTicketService_ViewOpenTicketIsNeverOverdue(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	ticket := createTicket(t, svc, "Nobody picked this up")

	clk.Advance(100 * time.Hour)
	view, err := svc.View(context.Background(), ticket.Code)
	require.NoError(t, err)
	assert.False(t, view.IsOverdue)
}

func TestTicketService_ViewShowsDuplicate(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	first := createTicket(t, svc, "Leak in lab")
	clk.Advance(time.Minute)
	second := createTicket(t, svc, "leak in lab")

	view, err := svc.View(context.Background(), second.Code)
	require.NoError(t, err)
	require.NotNil(t, view.DuplicateCandidate)
	assert.Equal(t, first.Code, view.DuplicateCandidate.Code)
}

func TestTicketService_OverdueReport(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()

	createTicket(t, svc, "Open")
	worked := createTicket(t, svc, "Worked")
	_, err := svc.Assign(ctx, worked.Code, models.SystemActor, "staff.an")
	require.NoError(t, err)

	clk.Advance(6 * time.Hour)
	report, err := svc.OverdueReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Items, 1)
	assert.Equal(t, worked.Code, report.Items[0].Ticket.Code)
	assert.Equal(t, 2*time.Hour, report.Items[0].OverdueBy)
}

func TestTicketService_AutoCloser(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()
	ticket := createTicket(t, svc, "Fixed light")

	_, err := svc.Assign(ctx, ticket.Code, admin, "staff.an")
	require.NoError(t, err)
	_, err = svc.Start(ctx, ticket.Code, staffAn)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, ticket.Code, staffAn, "Bulb replaced")
	require.NoError(t, err)

	closer := svc.AutoCloser(72 * time.Hour)

	clk.Advance(71 * time.Hour)
	summary, err := closer.CloseDue(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, summary.Closed)

	clk.Advance(2 * time.Hour)
	summary, err = closer.CloseDue(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Closed)

	stored, err := svc.Get(ctx, ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, stored.Status)
	last := stored.Events[len(stored.Events)-1]
	assert.Equal(t, models.RoleSystem, last.ActorRole)
	assert.Equal(t, "Closed automatically", last.Description)
}

func TestTicketService_AutoCloseKeepsLateFeedback(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()
	ticket := createTicket(t, svc, "Fixed light")

	_, err := svc.Assign(ctx, ticket.Code, admin, "staff.an")
	require.NoError(t, err)
	_, err = svc.Start(ctx, ticket.Code, staffAn)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, ticket.Code, staffAn, "Bulb replaced")
	require.NoError(t, err)

	// The sweep lists the ticket, then the requester rates it before the
	// sweep gets to close it.
	listed, err := svc.Get(ctx, ticket.Code)
	require.NoError(t, err)
	clk.Advance(time.Hour)
	_, err = svc.SubmitFeedback(ctx, ticket.Code, student, 5, "quick fix")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	require.NoError(t, svc.closeResolved(ctx, listed))

	stored, err := svc.Get(ctx, ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, stored.Status)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, 5, stored.Feedback.Rating)
	assert.Equal(t, "quick fix", stored.Feedback.Comment)
}

func TestTicketService_Import(t *testing.T) {
	svc, _, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()

	tickets, err := upstream.DecodeMany([]byte(`[
	  {"id": "p-1", "code": "TK-7", "title": "Projector", "status": "acknowledged", "priority": "urgent",
	   "requesterId": "sv001", "assigneeId": "staff.an", "createdAt": "2025-01-01T00:00:00"},
	  {"_id": "c-1", "ticketCode": "TK-8", "title": "Leak", "status": "open",
	   "category": {"_id": "cat", "slaResolveHours": 12}, "created_at": "2025-01-01T00:00:00"}
	]`))
	require.NoError(t, err)

	result, err := svc.Import(ctx, tickets)
	require.NoError(t, err)
	assert.Equal(t, []string{"TK-7", "TK-8"}, result.Imported)
	assert.Empty(t, result.Failed)

	imported, err := svc.Get(ctx, "TK-7")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(4*time.Hour), imported.ResolveDeadline, "missing deadline derived from priority")
	assert.Equal(t, models.StatusAssigned, imported.Status)

	// Category record has no priority, so priority mode cannot derive a deadline.
	leak, err := svc.Get(ctx, "TK-8")
	require.NoError(t, err)
	assert.True(t, leak.ResolveDeadline.IsZero())

	again, err := upstream.DecodeMany([]byte(`{"id": "p-1", "title": "Projector", "createdAt": "2025-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	result, err = svc.Import(ctx, again)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Len(t, result.Skipped, 1)

	fresh, err := svc.Create(ctx, CreateInput{Title: "After import", Requester: student})
	require.NoError(t, err)
	assert.Equal(t, "TK-9", fresh.Ticket.Code)
}

func TestTicketService_Categories(t *testing.T) {
	svc, _, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, student, "Electrical", "Facilities", 12)
	require.Error(t, err)

	_, err = svc.CreateCategory(ctx, admin, "Forever", "Facilities", 3e6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))

	c, err := svc.CreateCategory(ctx, admin, "Electrical", "Facilities", 12)
	require.NoError(t, err)
	assert.Equal(t, t0, c.CreatedAt)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Electrical", list[0].Name)
}

func TestTicketService_Status(t *testing.T) {
	svc, clk, _ := newTestService(t, sla.DefaultPolicy())
	ctx := context.Background()
	staffBinh := models.Actor{ID: "staff.binh", Role: models.RoleStaff}

	open := createTicket(t, svc, "Open")
	assigned := createTicket(t, svc, "Assigned")
	started := createTicket(t, svc, "Started")
	withdrawn := createTicket(t, svc, "Withdrawn")

	clk.Advance(10 * time.Minute)
	_, err := svc.Assign(ctx, assigned.Code, models.SystemActor, "staff.an")
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	_, err = svc.Assign(ctx, started.Code, models.SystemActor, staffBinh.ID)
	require.NoError(t, err)
	_, err = svc.Start(ctx, started.Code, staffBinh)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	_, err = svc.Cancel(ctx, withdrawn.Code, student, "Fixed itself")
	require.NoError(t, err)

	clk.Set(t0.Add(time.Hour))
	summary, err := svc.Status(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Active)
	assert.Equal(t, 1, summary.Unassigned)
	assert.Equal(t, 1, summary.ByStatus[models.StatusCancelled])
	assert.Equal(t, 0, summary.ByStatus[models.StatusClosed])
	assert.Equal(t, 0, summary.Overdue)
	require.Len(t, summary.DueSoon, 2, "open tickets have no running clock")
	assert.Equal(t, 180, summary.DueSoon[0].MinutesLeft)

	require.Len(t, summary.RecentActivity, 3)
	assert.Equal(t, started.Code, summary.RecentActivity[0].Code)
	assert.Equal(t, models.EventInProgress, summary.RecentActivity[0].Event)
	assert.Equal(t, "40m ago", summary.RecentActivity[0].Age)
	assert.Equal(t, assigned.Code, summary.RecentActivity[1].Code)
	assert.Equal(t, open.Code, summary.RecentActivity[2].Code)

	clk.Set(t0.Add(5 * time.Hour))
	summary, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Overdue)
	assert.Empty(t, summary.DueSoon)
}
