package server

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/service"
	"github.com/campusdesk/campusdesk/internal/state"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error      string                 `json:"error"`
	Kind       string                 `json:"kind"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// actorFields identifies who performs a mutation.
type actorFields struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
}

func (a actorFields) actor() (models.Actor, error) {
	if strings.TrimSpace(a.ActorID) == "" {
		return models.Actor{}, errors.Validation("actor_id is required")
	}
	role, err := models.ParseActorRole(a.ActorRole)
	if err != nil {
		return models.Actor{}, errors.Validation("%s", err.Error())
	}
	return models.Actor{ID: strings.TrimSpace(a.ActorID), Role: role}, nil
}

// CreateTicketRequest is the body of POST /api/tickets.
type CreateTicketRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	Room          string `json:"room"`
	Priority      string `json:"priority"`
	Category      string `json:"category"`
	RequesterID   string `json:"requester_id"`
	RequesterRole string `json:"requester_role"`
}

// TransitionRequest is the body of POST /api/tickets/:ref/transitions.
// To "escalate" hands an in-progress ticket to another assignee.
type TransitionRequest struct {
	actorFields
	To         string `json:"to"`
	AssigneeID string `json:"assignee_id"`
	Note       string `json:"note"`
}

// CommentRequest is the body of POST /api/tickets/:ref/comments.
type CommentRequest struct {
	actorFields
	Text string `json:"text"`
}

// FeedbackRequest is the body of PUT /api/tickets/:ref/feedback.
type FeedbackRequest struct {
	actorFields
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CategoryRequest is the body of POST /api/categories.
type CategoryRequest struct {
	actorFields
	Name            string  `json:"name"`
	Department      string  `json:"department"`
	SLAResolveHours float64 `json:"sla_resolve_hours"`
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.Wrap(err, errors.KindParse, "invalid request body")
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.config.DB != nil {
		if err := s.config.DB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unavailable",
				"database": err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleListTickets serves GET /api/tickets?status=a,b&overdue=true&limit=n.
func (s *Server) handleListTickets(c *fiber.Ctx) error {
	opts := service.ListOptions{
		RequesterID: c.Query("requester"),
		AssigneeID:  c.Query("assignee"),
		CategoryID:  c.Query("category"),
		OverdueOnly: c.QueryBool("overdue", false),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseStatus(part)
			if err != nil {
				return errors.Validation("%s", err.Error())
			}
			opts.Statuses = append(opts.Statuses, status)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return errors.Validation("limit must be a non-negative integer")
		}
		opts.Limit = limit
	}

	tickets, err := s.svc.List(c.UserContext(), opts)
	if err != nil {
		return err
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return c.JSON(fiber.Map{"data": tickets})
}

func (s *Server) handleCreateTicket(c *fiber.Ctx) error {
	var req CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	requester, err := actorFields{ActorID: req.RequesterID, ActorRole: req.RequesterRole}.actor()
	if err != nil {
		return err
	}
	in := service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Room:        req.Room,
		Category:    req.Category,
		Requester:   requester,
	}
	if req.Priority != "" {
		p, err := models.ParsePriority(req.Priority)
		if err != nil {
			return errors.Validation("%s", err.Error())
		}
		in.Priority = p
	}

	result, err := s.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (s *Server) handleGetTicket(c *fiber.Ctx) error {
	view, err := s.svc.View(c.UserContext(), c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (s *Server) handleGetTimeline(c *fiber.Ctx) error {
	tl, err := s.svc.Timeline(c.UserContext(), c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(tl)
}

func (s *Server) handleTransition(c *fiber.Ctx) error {
	var req TransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actor, err := req.actor()
	if err != nil {
		return err
	}
	ref := c.Params("ref")

	var result *service.TransitionResult
	if strings.EqualFold(strings.TrimSpace(req.To), "escalate") {
		result, err = s.svc.Escalate(c.UserContext(), ref, actor, req.AssigneeID, req.Note)
	} else {
		to, perr := models.ParseStatus(req.To)
		if perr != nil {
			return errors.Validation("%s", perr.Error())
		}
		result, err = s.svc.Transition(c.UserContext(), ref, state.Request{
			To:         to,
			Actor:      actor,
			AssigneeID: req.AssigneeID,
			Note:       req.Note,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actor, err := req.actor()
	if err != nil {
		return err
	}
	event, err := s.svc.Comment(c.UserContext(), c.Params("ref"), actor, req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var req FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actor, err := req.actor()
	if err != nil {
		return err
	}
	ticket, err := s.svc.SubmitFeedback(c.UserContext(), c.Params("ref"), actor, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

func (s *Server) handleListCategories(c *fiber.Ctx) error {
	categories, err := s.svc.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return c.JSON(fiber.Map{"data": categories})
}

func (s *Server) handleCreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actor, err := req.actor()
	if err != nil {
		return err
	}
	category, err := s.svc.CreateCategory(c.UserContext(), actor, req.Name, req.Department, req.SLAResolveHours)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (s *Server) handleOverdue(c *fiber.Ctx) error {
	report, err := s.svc.OverdueReport(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	summary, err := s.svc.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
