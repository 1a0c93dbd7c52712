package cli

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/campusdesk/campusdesk/internal/models"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiGray   = "\033[90m"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// colorEnabled reports whether ANSI colors should be written to stdout.
func colorEnabled() bool {
	return !IsNoColor() && isTerminal(stdout())
}

// logFormat picks console logs for a terminal and JSON otherwise.
func logFormat(w io.Writer) string {
	if isTerminal(w) {
		return "console"
	}
	return "json"
}

func colorize(s, color string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + ansiReset
}

func statusColor(s models.Status) string {
	switch s {
	case models.StatusOpen:
		return ansiYellow
	case models.StatusAssigned, models.StatusInProgress:
		return ansiBlue
	case models.StatusResolved, models.StatusClosed:
		return ansiGreen
	default:
		return ansiGray
	}
}

func coloredStatus(s models.Status) string {
	return colorize(string(s), statusColor(s))
}

func overdueMark(overdue bool) string {
	if !overdue {
		return ""
	}
	return colorize("OVERDUE", ansiRed)
}
