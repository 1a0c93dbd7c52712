package service

import (
	"context"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"go.uber.org/zap"
)

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported []string          `json:"imported"`
	Skipped  []string          `json:"skipped"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Import stores tickets decoded from upstream records. Tickets whose ID
// already exists are skipped. A missing resolve deadline is derived with
// the SLA policy; if the policy cannot derive one it stays empty and the
// ticket is never reported overdue.
func (s *TicketService) Import(ctx context.Context, tickets []*models.Ticket) (*ImportResult, error) {
	result := &ImportResult{Imported: []string{}, Skipped: []string{}, Failed: map[string]string{}}

	for _, t := range tickets {
		label := t.Code
		if label == "" {
			label = t.ID
		}

		if t.ID != "" {
			existing, err := s.store.GetTicketByID(ctx, t.ID)
			if err != nil {
				return result, errors.WrapInternal(err, "failed to check ticket %s", label)
			}
			if existing != nil {
				result.Skipped = append(result.Skipped, label)
				continue
			}
		}

		if t.ResolveDeadline.IsZero() {
			if d, err := s.policy.Deadline(t); err == nil {
				t.ResolveDeadline = d
			} else {
				s.log.Warn("imported ticket has no derivable deadline", zap.String("ticket", label), zap.Error(err))
			}
		}

		if err := s.store.CreateTicket(ctx, t); err != nil {
			if errors.GetKind(err) == errors.KindInternal {
				return result, err
			}
			result.Failed[label] = err.Error()
			continue
		}
		result.Imported = append(result.Imported, t.Code)
	}

	s.log.Info("import finished",
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}
