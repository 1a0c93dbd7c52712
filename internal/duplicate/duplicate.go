// Package duplicate warns when a new ticket looks like one that is
// already being handled.
package duplicate

import (
	"strings"

	"github.com/campusdesk/campusdesk/internal/models"
)

// Thresholds for description similarity.
const (
	// WithTitleThreshold applies when titles already match.
	WithTitleThreshold = 0.8
	// WithoutTitleThreshold applies when only location and room match.
	WithoutTitleThreshold = 0.9
)

// Similarity returns the Jaccard index of the lower-cased, whitespace
// separated word sets of a and b. Identical non-empty texts score 1;
// otherwise it is 0 when either text has no words.
func Similarity(a, b string) float64 {
	if a != "" && a == b {
		return 1
	}
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	union := len(wa) + len(wb) - shared
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// FindDuplicate returns the first ticket in active that candidate likely
// duplicates, or nil. Only open, assigned and in-progress tickets are
// considered; the candidate itself is skipped when it appears in active.
func FindDuplicate(candidate *models.Ticket, active []*models.Ticket) *models.Ticket {
	if candidate == nil {
		return nil
	}
	for _, existing := range active {
		if existing == nil || existing == candidate || !existing.Status.IsOpenForWork() {
			continue
		}
		if candidate.ID != "" && existing.ID == candidate.ID {
			continue
		}
		if Matches(candidate, existing) {
			return existing
		}
	}
	return nil
}

// Matches applies the duplicate rule to a pair of tickets, ignoring status.
func Matches(a, b *models.Ticket) bool {
	descSim := Similarity(a.Description, b.Description)
	samePlace := SameLocation(a, b)

	if sameTitle(a.Title, b.Title) && (descSim > WithTitleThreshold || samePlace) {
		return true
	}
	return descSim > WithoutTitleThreshold && samePlace
}

// SameLocation reports whether location and room both match exactly.
func SameLocation(a, b *models.Ticket) bool {
	return a.Location == b.Location && a.Room == b.Room
}

func sameTitle(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
