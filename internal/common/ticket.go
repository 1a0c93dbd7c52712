// Package common provides shared utilities used across the CLI, server and
// engine packages: timestamp normalization, civil-time projection, human
// duration formatting and ticket code parsing.
package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/campusdesk/campusdesk/internal/errors"
)

// TicketCodePrefix prefixes every human-facing ticket code.
const TicketCodePrefix = "TK"

// ticketCodeRegex validates ticket codes like "TK-42".
var ticketCodeRegex = regexp.MustCompile(`^` + TicketCodePrefix + `-(\d+)$`)

// FormatTicketCode returns the code for the n-th ticket in a store.
func FormatTicketCode(n int) string {
	return fmt.Sprintf("%s-%d", TicketCodePrefix, n)
}

// ParseTicketCode parses a code like "TK-42" (case-insensitive) into its
// number. A bare positive number ("42") is accepted as shorthand.
func ParseTicketCode(code string) (int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if matches := ticketCodeRegex.FindStringSubmatch(code); matches != nil {
		n, err := strconv.Atoi(matches[1])
		if err == nil && n > 0 {
			return n, nil
		}
	}

	if n, err := strconv.Atoi(code); err == nil && n > 0 {
		return n, nil
	}

	return 0, errors.ParseError("invalid ticket code %q (expected %s-NUMBER)", code, TicketCodePrefix)
}
