package cli

import (
	"errors"
	"strings"

	cderrors "github.com/campusdesk/campusdesk/internal/errors"
)

// ExitCode returns the exit code for any error.
func ExitCode(err error) int {
	var e *cderrors.Error
	if errors.As(err, &e) {
		return e.CLIExitCode()
	}
	return ExitGeneralError
}

// FormatErrorMessage returns formatted error with suggestion if available.
func FormatErrorMessage(err error) string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(err.Error())

	var e *cderrors.Error
	if errors.As(err, &e) && e.Suggestion != "" {
		b.WriteString("\n\nSuggestion: ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

// ErrInvalidArgs creates an error for well-formed but unacceptable
// arguments (exit code 4). Unreadable input stays a ParseError.
func ErrInvalidArgs(format string, args ...interface{}) error {
	return cderrors.Validation(format, args...)
}

// Common suggestions
const (
	SuggestRunInit      = "Run 'campusdesk init' to create a new database."
	SuggestListTickets  = "Run 'campusdesk ticket list' to see available tickets."
	SuggestActorFormat  = "Pass --as role:id, e.g. --as staff:an.nguyen (roles: student, staff, admin)."
	SuggestCheckStatus  = "Run 'campusdesk ticket show %s' to check the ticket's current status."
	SuggestListCategory = "Run 'campusdesk category list' to see available categories."
)
