package service

import (
	"context"
	"strings"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"go.uber.org/zap"
)

// CreateCategory adds a category. Only admins manage categories.
func (s *TicketService) CreateCategory(ctx context.Context, actor models.Actor, name, department string, hours float64) (*models.Category, error) {
	if err := requireRole(actor, "manage categories", models.RoleAdmin); err != nil {
		return nil, err
	}
	c := &models.Category{
		Name:            strings.TrimSpace(name),
		Department:      strings.TrimSpace(department),
		SLAResolveHours: hours,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.String("category", c.Name), zap.Float64("sla_hours", hours))
	return c, nil
}

// ListCategories returns all categories.
func (s *TicketService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list categories")
	}
	return categories, nil
}

// resolveCategory looks ref up as an ID, then as a name.
func (s *TicketService) resolveCategory(ctx context.Context, ref string) (*models.Category, error) {
	ref = strings.TrimSpace(ref)
	c, err := s.store.GetCategory(ctx, ref)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to get category")
	}
	if c == nil {
		c, err = s.store.GetCategoryByName(ctx, ref)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to get category")
		}
	}
	if c == nil {
		return nil, errors.NotFound("category %q not found", ref).
			WithSuggestion("Run 'campusdesk category list' to see available categories.")
	}
	return c, nil
}
