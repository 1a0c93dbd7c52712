package timeline

import (
	"testing"
	"time"

	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func ev(typ models.EventType, offset time.Duration) models.Event {
	return models.Event{Type: typ, Timestamp: t0.Add(offset)}
}

func TestBuild_Empty(t *testing.T) {
	tl := Build(nil)
	assert.Empty(t, tl.Entries)
	assert.Nil(t, tl.ResponseTimeMinutes)
	assert.Nil(t, tl.ResolutionTimeMinutes)
	assert.Zero(t, tl.TotalMinutes())
}

func TestBuild_ResponseAndResolution(t *testing.T) {
	tl := Build([]models.Event{
		ev(models.EventCreated, 0),
		ev(models.EventAssigned, 30*time.Minute),
		ev(models.EventResolved, 90*time.Minute),
	})

	require.Len(t, tl.Entries, 3)
	require.NotNil(t, tl.ResponseTimeMinutes)
	require.NotNil(t, tl.ResolutionTimeMinutes)
	assert.Equal(t, 30, *tl.ResponseTimeMinutes)
	assert.Equal(t, 90, *tl.ResolutionTimeMinutes)

	assert.Nil(t, tl.Entries[0].DurationMinutes)
	assert.Equal(t, 30, *tl.Entries[1].DurationMinutes)
	assert.Equal(t, 60, *tl.Entries[2].DurationMinutes)

	assert.Equal(t, []string{DisplayOpen, DisplayAcknowledged, DisplayResolved},
		[]string{tl.Entries[0].DisplayStatus, tl.Entries[1].DisplayStatus, tl.Entries[2].DisplayStatus})
}

func TestBuild_AggregatesAbsent(t *testing.T) {
	tl := Build([]models.Event{
		ev(models.EventCreated, 0),
		ev(models.EventComment, 5*time.Minute),
	})
	assert.Nil(t, tl.ResponseTimeMinutes)
	assert.Nil(t, tl.ResolutionTimeMinutes)
}

func TestBuild_UsesFirstOccurrence(t *testing.T) {
	tl := Build([]models.Event{
		ev(models.EventCreated, 0),
		ev(models.EventAssigned, 10*time.Minute),
		ev(models.EventReassigned, 40*time.Minute),
	})
	require.NotNil(t, tl.ResponseTimeMinutes)
	assert.Equal(t, 10, *tl.ResponseTimeMinutes)
}

func TestBuild_DurationsSumToSpan(t *testing.T) {
	// Each gap is 40s, which rounds to 1 minute on its own; summing per-gap
	// rounding would report 5 minutes for a 3m20s span.
	var events []models.Event
	for i := 0; i < 6; i++ {
		typ := models.EventComment
		if i == 0 {
			typ = models.EventCreated
		}
		events = append(events, ev(typ, time.Duration(i)*40*time.Second))
	}

	tl := Build(events)
	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	assert.Equal(t, 3, tl.TotalMinutes())
	assert.Equal(t, roundMinutes(span), tl.TotalMinutes())
}

func TestBuild_IrregularGapsSumExactly(t *testing.T) {
	offsets := []time.Duration{0, 29 * time.Second, 91 * time.Second, 7*time.Minute + 31*time.Second, 2*time.Hour + 13*time.Second}
	events := make([]models.Event, len(offsets))
	for i, o := range offsets {
		events[i] = ev(models.EventComment, o)
	}
	tl := Build(events)
	assert.Equal(t, roundMinutes(offsets[len(offsets)-1]), tl.TotalMinutes())
	for _, e := range tl.Entries[1:] {
		assert.GreaterOrEqual(t, *e.DurationMinutes, 0)
	}
}

func TestDisplayStatus(t *testing.T) {
	tests := []struct {
		typ  models.EventType
		want string
	}{
		{models.EventCreated, "open"},
		{models.EventAssigned, "acknowledged"},
		{models.EventReassigned, "acknowledged"},
		{models.EventInProgress, "in-progress"},
		{models.EventResolved, "resolved"},
		{models.EventClosed, "closed"},
		{models.EventComment, "in-progress"},
		{models.EventCancelled, "cancelled"},
		{models.EventUpdated, "open"},
		{models.EventType("mystery"), "open"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayStatus(tt.typ))
		})
	}
}
