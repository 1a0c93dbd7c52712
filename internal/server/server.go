// Package server provides the HTTP API for campusdesk.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campusdesk/campusdesk/internal/service"
)

// Config holds the server configuration.
type Config struct {
	// Port is the TCP port to listen on (default 8080).
	Port int

	// Host is the address to bind to (default "127.0.0.1").
	Host string

	// Service runs every ticket operation.
	Service *service.TicketService

	// DB is pinged by the health check when set.
	DB *sql.DB

	// RequestTimeout bounds each request's context. Zero means no bound.
	RequestTimeout time.Duration

	Logger *zap.Logger
}

// Server is the HTTP server for the ticket API.
type Server struct {
	config Config
	app    *fiber.App
	svc    *service.TicketService
	logger *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) (*Server, error) {
	if config.Service == nil {
		return nil, fmt.Errorf("ticket service is required")
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		svc:    config.Service,
		logger: logger.Named("http"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "campusdesk",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
	})

	registerMiddlewares(s.app, s.logger, config.RequestTimeout)
	s.setupRoutes()

	return s, nil
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until the context is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.Address()))
		errCh <- s.app.Listen(s.Address())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// Address returns the server address (e.g., "127.0.0.1:8080").
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}
