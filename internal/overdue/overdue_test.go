package overdue

import (
	"testing"
	"time"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline = time.Date(2025, 1, 1, 4, 0, 0, 0, time.UTC)
)

func ticketWith(status models.Status) *models.Ticket {
	return &models.Ticket{
		Code:            "TK-1",
		Status:          status,
		Priority:        models.PriorityUrgent,
		CreatedAt:       created,
		ResolveDeadline: deadline,
	}
}

func TestIsOverdueAndActive_Scenarios(t *testing.T) {
	now := time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC)

	assert.True(t, IsOverdueAndActive(ticketWith(models.StatusAssigned), now, sla.DefaultPolicy()),
		"assigned ticket one hour past its deadline is overdue")
	assert.False(t, IsOverdueAndActive(ticketWith(models.StatusOpen), now, sla.DefaultPolicy()),
		"open tickets are never overdue")
}

func TestIsOverdueAndActive_ByStatus(t *testing.T) {
	policy := sla.DefaultPolicy()
	before := deadline.Add(-time.Minute)
	after := deadline.Add(time.Minute)

	tests := []struct {
		status      models.Status
		wantBefore  bool
		wantAtLimit bool
		wantAfter   bool
	}{
		{models.StatusOpen, false, false, false},
		{models.StatusAssigned, false, false, true},
		{models.StatusInProgress, false, false, true},
		{models.StatusResolved, false, false, false},
		{models.StatusClosed, false, false, false},
		{models.StatusCancelled, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			ticket := ticketWith(tt.status)
			assert.Equal(t, tt.wantBefore, IsOverdueAndActive(ticket, before, policy))
			assert.Equal(t, tt.wantAtLimit, IsOverdueAndActive(ticket, deadline, policy), "deadline itself is not overdue")
			assert.Equal(t, tt.wantAfter, IsOverdueAndActive(ticket, after, policy))
		})
	}
}

func TestIsOverdueAndActive_ComparesInstants(t *testing.T) {
	ticket := ticketWith(models.StatusInProgress)
	ict := time.FixedZone("ICT", 7*3600)

	// 10:59 ICT is 03:59 UTC, before the 04:00Z deadline.
	assert.False(t, IsOverdueAndActive(ticket, time.Date(2025, 1, 1, 10, 59, 0, 0, ict), sla.DefaultPolicy()))
	assert.True(t, IsOverdueAndActive(ticket, time.Date(2025, 1, 1, 11, 1, 0, 0, ict), sla.DefaultPolicy()))
}

func TestIsOverdueAndActive_DerivedDeadline(t *testing.T) {
	ticket := ticketWith(models.StatusAssigned)
	ticket.ResolveDeadline = time.Time{}

	assert.True(t, IsOverdueAndActive(ticket, created.Add(5*time.Hour), sla.DefaultPolicy()),
		"urgent allowance of 4h applies when no deadline is stored")
	assert.False(t, IsOverdueAndActive(ticket, created.Add(3*time.Hour), sla.DefaultPolicy()))

	ticket.Priority = ""
	assert.False(t, IsOverdueAndActive(ticket, created.Add(1000*time.Hour), sla.DefaultPolicy()),
		"no deadline source means never overdue")

	ticket.CategoryAllowanceHours = 2
	category := sla.Policy{Mode: sla.ModeCategory}
	assert.True(t, IsOverdueAndActive(ticket, created.Add(3*time.Hour), category))

	assert.False(t, IsOverdueAndActive(nil, created, category))
}

func TestEvaluator(t *testing.T) {
	clk := clock.Fake(deadline.Add(-time.Hour))
	e := NewEvaluator(sla.DefaultPolicy(), clk)

	tickets := []*models.Ticket{
		ticketWith(models.StatusOpen),
		ticketWith(models.StatusAssigned),
		ticketWith(models.StatusResolved),
		ticketWith(models.StatusInProgress),
	}
	tickets[1].Code = "TK-2"
	tickets[3].Code = "TK-4"

	assert.Empty(t, e.Filter(tickets))
	assert.False(t, e.Overdue(tickets[1]))

	clk.Advance(2 * time.Hour)
	got := e.Filter(tickets)
	require.Len(t, got, 2)
	assert.Equal(t, "TK-2", got[0].Code)
	assert.Equal(t, "TK-4", got[1].Code)
	assert.True(t, e.Overdue(tickets[3]))
}

func TestOverdueness(t *testing.T) {
	ticket := ticketWith(models.StatusAssigned)
	assert.Equal(t, 90*time.Minute, Overdueness(ticket, deadline.Add(90*time.Minute), sla.DefaultPolicy()))
	assert.Zero(t, Overdueness(ticket, deadline.Add(-time.Minute), sla.DefaultPolicy()))
	assert.Zero(t, Overdueness(ticketWith(models.StatusOpen), deadline.Add(time.Hour), sla.DefaultPolicy()))
}

func TestNewEvaluatorDefaultsToRealClock(t *testing.T) {
	e := NewEvaluator(sla.DefaultPolicy(), nil)
	require.NotNil(t, e.Clock)
	assert.WithinDuration(t, time.Now(), e.Clock.Now(), time.Minute)
}
