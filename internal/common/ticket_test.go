package common

import (
	"testing"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketCode(t *testing.T) {
	tests := []struct {
		code    string
		want    int
		wantErr bool
	}{
		{"TK-42", 42, false},
		{"tk-7", 7, false},
		{"  TK-1  ", 1, false},
		{"42", 42, false},
		{"TK-0", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"TK-", 0, true},
		{"XY-4", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseTicketCode(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.KindParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTicketCode(t *testing.T) {
	assert.Equal(t, "TK-1", FormatTicketCode(1))
	n, err := ParseTicketCode(FormatTicketCode(315))
	require.NoError(t, err)
	assert.Equal(t, 315, n)
}
