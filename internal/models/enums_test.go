package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{"open lowercase", "open", StatusOpen, false},
		{"assigned", "assigned", StatusAssigned, false},
		{"acknowledged alias", "acknowledged", StatusAssigned, false},
		{"in_progress underscore", "in_progress", StatusInProgress, false},
		{"in-progress hyphen", "in-progress", StatusInProgress, false},
		{"resolved", "resolved", StatusResolved, false},
		{"closed", "closed", StatusClosed, false},
		{"cancelled", "cancelled", StatusCancelled, false},
		{"canceled spelling", "canceled", StatusCancelled, false},
		{"uppercase", "OPEN", StatusOpen, false},
		{"mixed case with whitespace", "  In_Progress ", StatusInProgress, false},
		{"invalid status", "pending_user", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid status")
				assert.Contains(t, err.Error(), "valid:")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status      Status
		terminal    bool
		active      bool
		openForWork bool
		feedback    bool
	}{
		{StatusOpen, false, false, true, false},
		{StatusAssigned, false, true, true, false},
		{StatusInProgress, false, true, true, false},
		{StatusResolved, false, false, false, true},
		{StatusClosed, true, false, false, true},
		{StatusCancelled, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.IsValid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal(), "IsTerminal")
			assert.Equal(t, tt.active, tt.status.IsActive(), "IsActive")
			assert.Equal(t, tt.openForWork, tt.status.IsOpenForWork(), "IsOpenForWork")
			assert.Equal(t, tt.feedback, tt.status.CanReceiveFeedback(), "CanReceiveFeedback")
		})
	}

	assert.False(t, Status("blocked").IsValid())
	assert.Len(t, AllStatuses, 6)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{"urgent", PriorityUrgent, false},
		{"HIGH", PriorityHigh, false},
		{" medium ", PriorityMedium, false},
		{"low", PriorityLow, false},
		{"", "", false},
		{"critical", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePriority(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid priority")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriorityOrder(t *testing.T) {
	assert.Less(t, PriorityUrgent.Order(), PriorityHigh.Order())
	assert.Less(t, PriorityHigh.Order(), PriorityMedium.Order())
	assert.Less(t, PriorityMedium.Order(), PriorityLow.Order())
	assert.Equal(t, 99, Priority("").Order())
}

func TestParseActorRole(t *testing.T) {
	tests := []struct {
		input   string
		want    ActorRole
		wantErr bool
	}{
		{"student", RoleStudent, false},
		{"requester", RoleStudent, false},
		{"Staff", RoleStaff, false},
		{"admin", RoleAdmin, false},
		{"system", RoleSystem, false},
		{"janitor", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseActorRole(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventTypeIsValid(t *testing.T) {
	for _, et := range []EventType{EventCreated, EventAssigned, EventReassigned, EventInProgress,
		EventResolved, EventClosed, EventCancelled, EventComment, EventUpdated} {
		assert.True(t, et.IsValid(), et)
	}
	assert.False(t, EventType("photo_uploaded").IsValid())
}
