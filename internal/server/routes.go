package server

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	api.Get("/health", s.handleHealth)

	api.Get("/tickets", s.handleListTickets)
	api.Post("/tickets", s.handleCreateTicket)
	api.Get("/tickets/:ref", s.handleGetTicket)
	api.Get("/tickets/:ref/timeline", s.handleGetTimeline)
	api.Post("/tickets/:ref/transitions", s.handleTransition)
	api.Post("/tickets/:ref/comments", s.handleComment)
	api.Put("/tickets/:ref/feedback", s.handleFeedback)

	api.Get("/categories", s.handleListCategories)
	api.Post("/categories", s.handleCreateCategory)

	api.Get("/overdue", s.handleOverdue)
	api.Get("/status", s.handleStatus)
}
