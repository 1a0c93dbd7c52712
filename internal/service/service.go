// Package service runs campusdesk operations against the ticket store: it
// loads a ticket, applies one engine operation to a copy and persists the
// result as a single unit of work.
package service

import (
	"context"
	"time"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/db"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
	"github.com/campusdesk/campusdesk/internal/state"
	"go.uber.org/zap"
)

// Store is the persistence the services need. *db.Store implements it.
type Store interface {
	CreateTicket(ctx context.Context, t *models.Ticket) error
	SaveTicket(ctx context.Context, t *models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	ListTickets(ctx context.Context, filter db.TicketFilter) ([]*models.Ticket, error)
	ListActiveTickets(ctx context.Context) ([]*models.Ticket, error)
	ListResolvedTickets(ctx context.Context) ([]*models.Ticket, error)
	CountTicketsByStatus(ctx context.Context) (map[models.Status]int, error)

	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

var _ Store = (*db.Store)(nil)

// Options configures a TicketService. Zero values fall back to the default
// SLA policy, the real clock, a no-op logger and Indochina Time.
type Options struct {
	Policy   sla.Policy
	Clock    clock.Clock
	Logger   *zap.Logger
	Location *time.Location
}

// TicketService provides the ticket lifecycle operations.
type TicketService struct {
	store   Store
	machine *state.Machine
	policy  sla.Policy
	clock   clock.Clock
	log     *zap.Logger
	loc     *time.Location
}

// NewTicketService creates a new TicketService.
func NewTicketService(store Store, opts Options) *TicketService {
	if opts.Policy.Mode == "" {
		opts.Policy = sla.DefaultPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = common.DisplayLocation()
	}
	return &TicketService{
		store:   store,
		machine: state.NewMachine(),
		policy:  opts.Policy,
		clock:   opts.Clock,
		log:     opts.Logger,
		loc:     opts.Location,
	}
}

// Policy returns the SLA policy in effect.
func (s *TicketService) Policy() sla.Policy {
	return s.policy
}

// Location returns the display time zone.
func (s *TicketService) Location() *time.Location {
	return s.loc
}

// Now returns the service clock's current instant.
func (s *TicketService) Now() time.Time {
	return s.clock.Now()
}

// Machine exposes the state machine for transition listings.
func (s *TicketService) Machine() *state.Machine {
	return s.machine
}
