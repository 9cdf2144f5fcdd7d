package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Server is the dev agent backend serving the SSE chat protocol.
type Server struct {
	config    Config
	responder *Responder
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new dev server. The responder is injected so tests
// can swap in their own scripts.
func NewServer(config Config, responder *Responder, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		responder: responder,
		logger:    logger,
		app:       app,
	}

	app.Get("/api/chat/health", s.handleHealth)
	app.Get("/api/chat/models", s.handleModels)
	app.Post("/api/chat/query", s.handleQuery)

	return s
}

// Run starts the dev server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting dev agent server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the dev server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for testing.
func (s *Server) App() *fiber.App {
	return s.app
}
