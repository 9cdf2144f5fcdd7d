// Package conversation reconstructs coherent, continuously updated
// conversation turns from the fragments of a streaming agent response.
//
// A Session owns the append-only turn stores for both conversation modes,
// routes each submitted query to the right mode, and binds one stream per
// dispatch to the turn it created. Reconcilers interpret envelopes; the
// session provides the shared plumbing around them: handle capture,
// publication, terminality and the busy flag.
package conversation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/genie-cli/genie/pkg/envelope"
	"github.com/genie-cli/genie/pkg/stream"
)

// Opener opens one streaming query against the chat backend. Satisfied by
// *stream.Client; tests substitute fakes.
type Opener interface {
	Open(ctx context.Context, req stream.Request, h stream.Handler) error
}

// Config parameterizes a session.
type Config struct {
	Product   Product
	DeepThink bool
	Model     string

	Opener Opener
	Logger *zap.Logger

	// OnScroll, when set, runs after every publish so the renderer can keep
	// the most recent content visible.
	OnScroll func()
}

// Session is the conversation state for one page/process lifetime. All state
// is in memory; nothing survives the session.
type Session struct {
	id        string
	product   Product
	deepThink bool
	model     string

	opener   Opener
	logger   *zap.Logger
	onScroll func()

	agentTurns *Store[AgentTurn]
	dataTurns  *Store[DataTurn]

	agentRec AgentReconciler
	dataRec  DataReconciler

	mu       sync.Mutex
	title    string
	inflight int

	ui UIState
}

// NewSession creates a session with a fresh session identifier.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		id:         uuid.NewString(),
		product:    cfg.Product,
		deepThink:  cfg.DeepThink,
		model:      cfg.Model,
		opener:     cfg.Opener,
		logger:     logger,
		onScroll:   cfg.OnScroll,
		agentTurns: NewStore[AgentTurn](),
		dataTurns:  NewStore[DataTurn](),
	}
}

// ID returns the session identifier, stable across all turns.
func (s *Session) ID() string { return s.id }

// Mode returns the conversation mode every dispatch of this session routes to.
func (s *Session) Mode() Mode { return Route(s.product, s.deepThink) }

// Title returns the session title: the first submitted query.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Busy reports whether any dispatched turn is still streaming. Renderers use
// it to disable further input. Each in-flight turn is counted, so one turn
// finishing does not clear the flag while another is still open.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// AgentTurns is the store observed by the agent-mode renderer.
func (s *Session) AgentTurns() *Store[AgentTurn] { return s.agentTurns }

// DataTurns is the store observed by the data-mode renderer.
func (s *Session) DataTurns() *Store[DataTurn] { return s.dataTurns }

// UI is the shared side-panel visibility state.
func (s *Session) UI() *UIState { return &s.ui }

// Dispatch submits one query: it routes the mode, creates and appends the
// initial turn, and opens the stream with callbacks bound to the new turn's
// handle. The title is set from the first query only.
//
// A stream that fails to open is fatal to the turn, not the process: the
// turn is terminated in place and the error returned to the caller.
func (s *Session) Dispatch(ctx context.Context, query string, files ...File) (Handle, error) {
	requestID := uuid.NewString()

	s.mu.Lock()
	if s.title == "" {
		s.title = query
	}
	s.inflight++
	s.mu.Unlock()

	req := stream.Request{
		Query:     query,
		SessionID: s.id,
		RequestID: requestID,
		Model:     s.model,
		Product:   string(s.product),
		DeepThink: s.deepThink,
	}

	s.logger.Debug("dispatching query",
		zap.String("request_id", requestID),
		zap.Stringer("mode", s.Mode()),
	)

	if s.Mode() == ModeData {
		h := s.dataTurns.Append(DataTurn{Query: query, Loading: true})
		if err := s.opener.Open(ctx, req, s.dataHandler(h)); err != nil {
			if turn, ok := s.dataTurns.Get(h); ok {
				turn.Error = FallbackError
				turn.Loading = false
				s.dataTurns.Update(h, turn)
			}
			s.turnFinished()
			return h, err
		}
		return h, nil
	}

	h := s.agentTurns.Append(AgentTurn{
		Query:     query,
		Files:     files,
		SessionID: s.id,
		RequestID: requestID,
		Tip:       DefaultTip,
		Loading:   true,
	})
	if err := s.opener.Open(ctx, req, s.agentHandler(h)); err != nil {
		if turn, ok := s.agentTurns.Get(h); ok {
			turn.Response = FallbackError
			turn.Loading = false
			s.agentTurns.Update(h, turn)
		}
		s.turnFinished()
		return h, err
	}
	return h, nil
}

// agentHandler binds one agent-mode stream to the turn at h. The handle was
// captured at dispatch time, so envelopes keep targeting this turn even if
// later queries append behind it. The done flag needs no lock: all three
// callbacks run sequentially on the stream's reader goroutine.
func (s *Session) agentHandler(h Handle) stream.Handler {
	done := false

	return stream.Handler{
		OnMessage: func(ev *envelope.Envelope) {
			if done {
				s.logger.Debug("dropping envelope for finished turn", zap.Stringer("envelope", ev))
				return
			}
			turn, ok := s.agentTurns.Get(h)
			if !ok {
				return
			}

			next, out := s.agentRec.Apply(turn, ev)
			if !out.Publish {
				return
			}
			s.agentTurns.Update(h, next)
			s.scrolled()
			if out.Terminal {
				done = true
				s.turnFinished()
			}
		},

		OnError: func(err error) {
			if done {
				return
			}
			done = true
			s.logger.Warn("chat stream failed", zap.Error(err))

			if turn, ok := s.agentTurns.Get(h); ok {
				turn.Loading = false
				if turn.Response == "" {
					turn.Response = FallbackError
				}
				s.agentTurns.Update(h, turn)
				s.scrolled()
			}
			s.turnFinished()
		},

		OnClose: func() {
			if done {
				return
			}
			done = true

			// The server ended the stream without a terminal envelope.
			// Force a terminal state so the turn doesn't stay loading forever.
			if turn, ok := s.agentTurns.Get(h); ok && turn.Loading {
				turn.Loading = false
				turn.ForceStop = true
				s.agentTurns.Update(h, turn)
				s.scrolled()
			}
			s.turnFinished()
		},
	}
}

// dataHandler is the data-mode counterpart of agentHandler.
func (s *Session) dataHandler(h Handle) stream.Handler {
	done := false

	return stream.Handler{
		OnMessage: func(ev *envelope.Envelope) {
			if done {
				s.logger.Debug("dropping envelope for finished turn", zap.Stringer("envelope", ev))
				return
			}
			turn, ok := s.dataTurns.Get(h)
			if !ok {
				return
			}

			next, out := s.dataRec.Apply(turn, ev)
			if !out.Publish {
				return
			}
			s.dataTurns.Update(h, next)
			s.scrolled()
			if out.Terminal {
				done = true
				s.turnFinished()
			}
		},

		OnError: func(err error) {
			if done {
				return
			}
			done = true
			s.logger.Warn("chat stream failed", zap.Error(err))

			if turn, ok := s.dataTurns.Get(h); ok {
				turn.Error = FallbackError
				turn.Loading = false
				s.dataTurns.Update(h, turn)
				s.scrolled()
			}
			s.turnFinished()
		},

		OnClose: func() {
			if done {
				return
			}
			done = true

			if turn, ok := s.dataTurns.Get(h); ok && turn.Loading {
				turn.Loading = false
				if turn.Response == "" && turn.Error == "" {
					turn.Error = FallbackClosed
				}
				s.dataTurns.Update(h, turn)
				s.scrolled()
			}
			s.turnFinished()
		},
	}
}

// turnFinished retires one in-flight turn. Every terminal path of a stream
// (terminal envelope, transport error, close, failed open) reaches here
// exactly once, guarded by the handler's done flag.
func (s *Session) turnFinished() {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.mu.Unlock()
}

func (s *Session) scrolled() {
	if s.onScroll != nil {
		s.onScroll()
	}
}
