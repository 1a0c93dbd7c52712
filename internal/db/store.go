package db

import (
	"context"
	"database/sql"

	"github.com/campusdesk/campusdesk/internal/models"
)

// Store combines the repositories behind the interface the service layer
// consumes.
type Store struct {
	Tickets    *TicketRepo
	Categories *CategoryRepo
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Tickets:    NewTicketRepo(db),
		Categories: NewCategoryRepo(db),
	}
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	return s.Tickets.Create(ctx, t)
}

func (s *Store) SaveTicket(ctx context.Context, t *models.Ticket) error {
	return s.Tickets.Save(ctx, t)
}

func (s *Store) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	return s.Tickets.GetByID(ctx, id)
}

func (s *Store) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	return s.Tickets.GetByCode(ctx, code)
}

func (s *Store) ListTickets(ctx context.Context, filter TicketFilter) ([]*models.Ticket, error) {
	return s.Tickets.List(ctx, filter)
}

func (s *Store) ListActiveTickets(ctx context.Context) ([]*models.Ticket, error) {
	return s.Tickets.ListActive(ctx)
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.Categories.Create(ctx, c)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.Categories.GetByID(ctx, id)
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return s.Categories.GetByName(ctx, name)
}

func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.Categories.List(ctx)
}

func (s *Store) ListResolvedTickets(ctx context.Context) ([]*models.Ticket, error) {
	return s.Tickets.List(ctx, TicketFilter{Statuses: []models.Status{models.StatusResolved}})
}

func (s *Store) CountTicketsByStatus(ctx context.Context) (map[models.Status]int, error) {
	return s.Tickets.CountByStatus(ctx)
}
