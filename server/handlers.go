package server

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/genie-cli/genie/pkg/stream"
)

// errorResponse is the JSON body for non-stream errors.
type errorResponse struct {
	Error string `json:"error"`
}

// chunkDelay paces envelope emission so clients see progressive updates.
const chunkDelay = 50 * time.Millisecond

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleModels returns the model names this server can answer for.
func (s *Server) handleModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": s.responder.Models()})
}

// handleQuery streams the scripted envelope sequence for the query as
// server-sent events.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req stream.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "query is required"})
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	s.logger.Info("chat query",
		"request_id", req.RequestID,
		"session_id", req.SessionID,
		"product", req.Product,
		"deep_think", req.DeepThink,
	)

	envs := s.responder.Respond(req.Query, req.Product, req.DeepThink, req.RequestID, req.SessionID)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for i, env := range envs {
			data, err := json.Marshal(env)
			if err != nil {
				s.logger.Error("marshaling envelope", "error", err)
				return
			}

			if _, err := w.WriteString("event: message\ndata: " + string(data) + "\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Client went away; stop streaming.
				return
			}

			if i < len(envs)-1 {
				time.Sleep(chunkDelay)
			}
		}
	}))

	return nil
}
