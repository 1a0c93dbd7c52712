package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
)

// DisplayZone is the zone all human-facing output is rendered in,
// regardless of the caller's locale.
const DisplayZone = "Asia/Ho_Chi_Minh"

// ictOffset is Indochina Time, UTC+7, used when the tz database is missing.
const ictOffset = 7 * 60 * 60

// timestampLayouts are tried in order once a zone designator is guaranteed.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
}

// NormalizeTimestamp parses an ISO-8601-like timestamp into a UTC instant.
//
// Upstream services emit naive UTC strings ("2025-01-01T04:00:00"), so a
// timestamp without a zone designator is read as UTC. A single space is
// accepted in place of the 'T' separator. Malformed input is a parse
// error; it is never coerced to the current time.
func NormalizeTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.ParseError("empty timestamp")
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	if !hasZoneDesignator(s) {
		s += "Z"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.ParseError("malformed timestamp %q", raw).
		WithSuggestion("use ISO-8601, e.g. 2025-01-01T04:00:00Z")
}

// hasZoneDesignator reports whether the clock part of s carries Z or a
// numeric offset. The date part is skipped since it contains '-'.
func hasZoneDesignator(s string) bool {
	sep := strings.IndexByte(s, 'T')
	if sep < 0 {
		return false
	}
	clock := s[sep+1:]
	return strings.HasSuffix(clock, "Z") || strings.ContainsAny(clock, "+-")
}

// Civil holds wall-clock fields of an instant in a particular zone.
type Civil struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
	Second int        `json:"second"`
}

// ToCivil projects t into loc. A nil loc means DisplayLocation().
func ToCivil(t time.Time, loc *time.Location) Civil {
	if loc == nil {
		loc = DisplayLocation()
	}
	local := t.In(loc)
	return Civil{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
	}
}

// Date returns the civil date as YYYY-MM-DD, suitable for date-only comparisons.
func (c Civil) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", c.Year, int(c.Month), c.Day)
}

// String returns "YYYY-MM-DD HH:MM:SS".
func (c Civil) String() string {
	return fmt.Sprintf("%s %02d:%02d:%02d", c.Date(), c.Hour, c.Minute, c.Second)
}

// SameDay reports whether a and b fall on the same civil date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return ToCivil(a, loc).Date() == ToCivil(b, loc).Date()
}

// DisplayLocation returns Indochina Time.
func DisplayLocation() *time.Location {
	loc, _ := LoadLocation("")
	return loc
}

// LoadLocation resolves a zone name. The empty name resolves to
// DisplayZone, falling back to a fixed UTC+7 zone when the tz database
// is unavailable. Unknown non-empty names are an error.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		if loc, err := time.LoadLocation(DisplayZone); err == nil {
			return loc, nil
		}
		return time.FixedZone("ICT", ictOffset), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "unknown timezone %q", name)
	}
	return loc, nil
}

// FormatInstant renders t as civil time in loc followed by the zone abbreviation.
func FormatInstant(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = DisplayLocation()
	}
	return t.In(loc).Format("2006-01-02 15:04 MST")
}

// FormatAge returns a human-readable age string for a timestamp.
// Examples: "just now", "5m ago", "3h ago", "2d ago"
func FormatAge(t time.Time, now time.Time) string {
	return FormatDuration(now.Sub(t))
}

// FormatDuration returns a human-readable string for a duration.
// Negative durations read as time remaining ("in 3h").
// Examples: "just now", "5m ago", "3h ago", "2d ago", "in 45m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "in " + compactDuration(-d)
	}
	if d < time.Minute {
		return "just now"
	}
	return compactDuration(d) + " ago"
}

// FormatMinutes renders a minute count as "1h 30m", "2d 4h" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes < 24*60 {
		if m := minutes % 60; m != 0 {
			return fmt.Sprintf("%dh %dm", minutes/60, m)
		}
		return fmt.Sprintf("%dh", minutes/60)
	}
	days := minutes / (24 * 60)
	if h := (minutes % (24 * 60)) / 60; h != 0 {
		return fmt.Sprintf("%dd %dh", days, h)
	}
	return fmt.Sprintf("%dd", days)
}

func compactDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
