package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedTicket(code string, resolvedAt time.Time) *models.Ticket {
	return &models.Ticket{Code: code, Status: models.StatusResolved, CreatedAt: t0, ResolvedAt: &resolvedAt}
}

func TestAutoCloser_CloseDue(t *testing.T) {
	lister := &fakeLister{tickets: []*models.Ticket{
		resolvedTicket("TK-1", t0),
		resolvedTicket("TK-2", t0.Add(60*time.Hour)),
		resolvedTicket("TK-3", t0.Add(time.Hour)),
	}}
	var closed []string
	closeFn := func(_ context.Context, ticket *models.Ticket) error {
		if ticket.Code == "TK-3" {
			return fmt.Errorf("store unavailable")
		}
		closed = append(closed, ticket.Code)
		return nil
	}
	closer := NewAutoCloser(lister, closeFn, 72*time.Hour, clock.Fake(t0.Add(73*time.Hour)))

	summary, err := closer.CloseDue(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Closed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, []string{"TK-1"}, closed)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "store unavailable", summary.Results[1].ErrorMessage)
}

func TestAutoCloser_DryRun(t *testing.T) {
	lister := &fakeLister{tickets: []*models.Ticket{resolvedTicket("TK-1", t0)}}
	called := false
	closer := NewAutoCloser(lister, func(context.Context, *models.Ticket) error {
		called = true
		return nil
	}, time.Hour, clock.Fake(t0.Add(2*time.Hour)))

	summary, err := closer.CloseDue(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Closed)
	assert.False(t, called)
}

func TestAutoCloser_Due(t *testing.T) {
	closer := NewAutoCloser(nil, nil, 24*time.Hour, nil)
	ticket := resolvedTicket("TK-1", t0)

	assert.False(t, closer.Due(ticket, t0.Add(23*time.Hour)))
	assert.True(t, closer.Due(ticket, t0.Add(24*time.Hour)))

	ticket.Status = models.StatusClosed
	assert.False(t, closer.Due(ticket, t0.Add(48*time.Hour)))

	assert.False(t, closer.Due(&models.Ticket{Status: models.StatusResolved}, t0))
}
