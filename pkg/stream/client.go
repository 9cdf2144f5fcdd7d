// Package stream opens streaming chat queries against the genie agent
// backend and delivers decoded envelopes to a handler in arrival order.
//
// The client owns the asynchronous boundary of the system: everything above
// it (turn reconciliation, stores, rendering) runs inside the handler
// callbacks, one envelope at a time, with no reordering or batching.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/genie-cli/genie/pkg/envelope"
	"github.com/genie-cli/genie/pkg/sse"
)

// QueryPath is the chat query endpoint on the agent backend.
const QueryPath = "/api/chat/query"

// Request is the body of a streaming chat query.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Product   string `json:"product,omitempty"`
	DeepThink bool   `json:"deep_think,omitempty"`
}

// Handler receives the lifecycle of one stream. OnMessage is invoked once
// per decoded envelope, strictly in delivery order, on the stream's reader
// goroutine. OnError reports a connection-level failure (fatal to the turn,
// not the process). OnClose fires when the server ends the stream; exactly
// one of OnError or OnClose terminates a stream.
type Handler struct {
	OnMessage func(*envelope.Envelope)
	OnError   func(error)
	OnClose   func()
}

// Client opens SSE chat streams against a fixed backend target.
type Client struct {
	target string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a stream client for the given backend base URL
// (scheme + host + port, no path).
func NewClient(target string, logger *zap.Logger) *Client {
	return &Client{
		target: target,
		// No client-level timeout: agent streams are open-ended and are
		// bounded by the caller's context instead.
		http:   &http.Client{},
		logger: logger,
	}
}

// Open dispatches the query and starts reading the event stream on a new
// goroutine. It returns an error only for failures to establish the stream
// (bad request, unreachable backend, non-200 status); once Open returns nil,
// all further outcomes are reported through the handler.
func (c *Client) Open(ctx context.Context, req Request, h Handler) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling chat request: %w", err)
	}

	url := c.target + QueryPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("opening chat stream",
		zap.String("target", c.target),
		zap.String("request_id", req.RequestID),
		zap.String("model", req.Model),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("opening chat stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	go c.readLoop(resp.Body, req.RequestID, h)

	return nil
}

// readLoop consumes SSE events until the stream ends, decoding each data
// payload into an envelope. Malformed frames are logged and dropped without
// terminating the stream.
func (c *Client) readLoop(body io.ReadCloser, requestID string, h Handler) {
	defer body.Close()

	reader := sse.NewReader(body)

	for {
		ev, err := reader.Next()
		if err != nil {
			// Context cancellation surfaces here as a read error on the
			// closed body; report it like any other connection failure.
			if h.OnError != nil {
				h.OnError(fmt.Errorf("reading chat stream: %w", err))
			}
			return
		}

		if ev == nil {
			c.logger.Debug("chat stream closed", zap.String("request_id", requestID))
			if h.OnClose != nil {
				h.OnClose()
			}
			return
		}

		env, err := envelope.Parse([]byte(ev.Data))
		if err != nil {
			if errors.Is(err, envelope.ErrMissingKind) {
				c.logger.Warn("dropping malformed envelope",
					zap.String("request_id", requestID),
					zap.String("data", ev.Data),
				)
			} else {
				c.logger.Warn("dropping undecodable frame",
					zap.String("request_id", requestID),
					zap.Error(err),
				)
			}
			continue
		}

		if h.OnMessage != nil {
			h.OnMessage(env)
		}
	}
}
