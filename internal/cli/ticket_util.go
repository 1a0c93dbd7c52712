package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/models"
)

// truncate shortens s to maxLen runes, ending with "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// padRight pads s with spaces to width runes.
func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// fmtHours renders an hour allowance without trailing zeros.
func fmtHours(h float64) string {
	return fmt.Sprintf("%gh", h)
}

// fmtTime renders t in the configured display zone.
func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return common.FormatInstant(t, GetConfig().Location())
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmtTime(*t)
}

// place joins location and room for display.
func place(t *models.Ticket) string {
	switch {
	case t.Location != "" && t.Room != "":
		return t.Location + " / " + t.Room
	case t.Location != "":
		return t.Location
	case t.Room != "":
		return "room " + t.Room
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func rule(ch string) string {
	return strings.Repeat(ch, 65)
}

// section prints a titled divider used by the show commands.
func section(out io.Writer, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, rule("-"))
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, rule("-"))
}
