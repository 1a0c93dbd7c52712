package db

import (
	"context"
	"testing"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTicket(title string) *models.Ticket {
	return &models.Ticket{
		Title:           title,
		Description:     "details",
		Location:        "Nhà A2",
		Room:            "301",
		RequesterID:     "sv001",
		Status:          models.StatusOpen,
		Priority:        models.PriorityUrgent,
		CreatedAt:       created,
		ResolveDeadline: created.Add(4 * time.Hour),
		Events: []models.Event{{
			Timestamp: created, Type: models.EventCreated, Actor: "sv001",
			ActorRole: models.RoleStudent, Title: "Ticket created",
		}},
	}
}

func TestTicketRepo_CreateAssignsSequentialCodes(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	first := newTicket("Projector broken")
	second := newTicket("Wifi down")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, "TK-1", first.Code)
	assert.Equal(t, "TK-2", second.Code)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, first.Events[0].ID, "event IDs are assigned on insert")
}

func TestTicketRepo_RoundTrip(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	ticket := newTicket("Máy chiếu hỏng")
	require.NoError(t, repo.Create(ctx, ticket))

	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Máy chiếu hỏng", got.Title)
	assert.Equal(t, "Nhà A2", got.Location)
	assert.Equal(t, models.PriorityUrgent, got.Priority)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.ResolveDeadline.Equal(created.Add(4*time.Hour)))
	assert.Nil(t, got.ResolvedAt)
	assert.Nil(t, got.Feedback)
	require.Len(t, got.Events, 1)
	assert.Equal(t, models.EventCreated, got.Events[0].Type)
	assert.Equal(t, models.RoleStudent, got.Events[0].ActorRole)

	byCode, err := repo.GetByCode(ctx, "tk-1")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, ticket.ID, byCode.ID)

	byNumber, err := repo.GetByNumber(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, byNumber)

	missing, err := repo.GetByCode(ctx, "TK-99")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTicketRepo_CreateKeepsImportedCode(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	imported := newTicket("Imported")
	imported.ID = "65f1"
	imported.Code = "TK-40"
	require.NoError(t, repo.Create(ctx, imported))

	next := newTicket("Next")
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, "TK-41", next.Code, "numbering continues after imported codes")

	dup := newTicket("Again")
	dup.Code = "TK-40"
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))
}

func TestTicketRepo_SaveAppendsOnlyNewEvents(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	ticket := newTicket("Leak")
	require.NoError(t, repo.Create(ctx, ticket))
	firstEventID := ticket.Events[0].ID

	ticket.Status = models.StatusAssigned
	ticket.AssigneeID = "staff.an"
	ticket.Events = append(ticket.Events, models.Event{
		Timestamp: created.Add(30 * time.Minute), Type: models.EventAssigned,
		Actor: "system", ActorRole: models.RoleSystem, Title: "Ticket assigned",
	})
	require.NoError(t, repo.Save(ctx, ticket))

	resolvedAt := created.Add(90 * time.Minute)
	ticket.Status = models.StatusResolved
	ticket.ResolvedAt = &resolvedAt
	ticket.ResolutionNote = "Fixed pipe"
	ticket.Feedback = &models.Feedback{Rating: 5, Comment: "fast", SubmittedAt: resolvedAt, UpdatedAt: resolvedAt}
	ticket.Events = append(ticket.Events, models.Event{
		Timestamp: resolvedAt, Type: models.EventResolved,
		Actor: "staff.an", ActorRole: models.RoleStaff, Title: "Ticket resolved", Description: "Fixed pipe",
	})
	require.NoError(t, repo.Save(ctx, ticket))

	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "staff.an", got.AssigneeID)
	assert.Equal(t, "Fixed pipe", got.ResolutionNote)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(resolvedAt))
	require.NotNil(t, got.Feedback)
	assert.Equal(t, 5, got.Feedback.Rating)

	require.Len(t, got.Events, 3)
	assert.Equal(t, firstEventID, got.Events[0].ID)
	assert.Equal(t, models.EventAssigned, got.Events[1].Type)
	assert.Equal(t, models.EventResolved, got.Events[2].Type)
	assert.Equal(t, "Fixed pipe", got.Events[2].Description)
}

func TestTicketRepo_SaveRejectsShrunkLog(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	ticket := newTicket("Leak")
	ticket.Events = append(ticket.Events, models.Event{
		Timestamp: created.Add(time.Minute), Type: models.EventComment, Actor: "sv001", ActorRole: models.RoleStudent,
	})
	require.NoError(t, repo.Create(ctx, ticket))

	ticket.Title = "Changed"
	ticket.Events = ticket.Events[:1]
	err := repo.Save(ctx, ticket)
	require.Error(t, err)

	// The whole save rolled back.
	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leak", got.Title)
	assert.Len(t, got.Events, 2)
}

func TestTicketRepo_SaveRejectsStaleCopy(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	ticket := newTicket("Leak")
	require.NoError(t, repo.Create(ctx, ticket))

	first, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	stale, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)

	first.Feedback = &models.Feedback{Rating: 4, SubmittedAt: created, UpdatedAt: created}
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, 1, first.Version)

	stale.Title = "Leak in the basement"
	err = repo.Save(ctx, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))

	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leak", got.Title)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, 4, got.Feedback.Rating)
	assert.Equal(t, 1, got.Version)

	require.NoError(t, repo.Save(ctx, first), "the current copy can keep saving")
}

func TestTicketRepo_SaveMissing(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()

	ticket := newTicket("Ghost")
	ticket.ID = "does-not-exist"
	err := NewTicketRepo(db.DB).Save(context.Background(), ticket)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestTicketRepo_ListFilters(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewTicketRepo(db.DB)

	statuses := []models.Status{
		models.StatusOpen, models.StatusAssigned, models.StatusInProgress,
		models.StatusResolved, models.StatusClosed, models.StatusCancelled,
	}
	for i, s := range statuses {
		ticket := newTicket(string(s))
		ticket.Status = s
		if s != models.StatusOpen {
			ticket.AssigneeID = "staff.an"
		}
		if i%2 == 0 {
			ticket.RequesterID = "sv002"
		}
		require.NoError(t, repo.Create(ctx, ticket))
	}

	all, err := repo.List(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "TK-1", all[0].Code)
	for _, ticket := range all {
		assert.Len(t, ticket.Events, 1, "events are loaded for listed tickets")
	}

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, ticket := range active {
		assert.True(t, ticket.Status.IsOpenForWork())
	}

	mine, err := repo.List(ctx, TicketFilter{RequesterID: "sv002"})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	assigned, err := repo.List(ctx, TicketFilter{AssigneeID: "staff.an", Statuses: []models.Status{models.StatusResolved}})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, models.StatusResolved, assigned[0].Status)

	limited, err := repo.List(ctx, TicketFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusCancelled])
}

func TestTicketRepo_CreateRejectsInvalid(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()

	ticket := newTicket("Bad deadline")
	ticket.ResolveDeadline = created.Add(-time.Hour)
	err := NewTicketRepo(db.DB).Create(context.Background(), ticket)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))
}
