package conversation_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/genie-cli/genie/pkg/conversation"
	"github.com/genie-cli/genie/pkg/envelope"
	"github.com/genie-cli/genie/pkg/stream"
)

// fakeOpener records every opened stream so tests can drive its handlers
// directly, simulating envelope delivery without a network.
type fakeOpener struct {
	mu       sync.Mutex
	requests []stream.Request
	handlers []stream.Handler
	err      error
}

func (f *fakeOpener) Open(_ context.Context, req stream.Request, h stream.Handler) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.handlers = append(f.handlers, h)
	return nil
}

func (f *fakeOpener) handler(i int) stream.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[i]
}

func (f *fakeOpener) request(i int) stream.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

var _ = Describe("Session", func() {
	var opener *fakeOpener

	BeforeEach(func() {
		opener = &fakeOpener{}
	})

	newAgentSession := func() *conversation.Session {
		return conversation.NewSession(conversation.Config{
			Product: conversation.ProductAgent,
			Model:   "qwen-plus",
			Opener:  opener,
		})
	}

	newDataSession := func() *conversation.Session {
		return conversation.NewSession(conversation.Config{
			Product: conversation.ProductDataAgent,
			Model:   "qwen-plus",
			Opener:  opener,
		})
	}

	Describe("Dispatch", func() {
		It("creates a loading agent turn with the default tip", func() {
			s := newAgentSession()
			h, err := s.Dispatch(context.Background(), "do the thing")
			Expect(err).NotTo(HaveOccurred())

			turn, ok := s.AgentTurns().Get(h)
			Expect(ok).To(BeTrue())
			Expect(turn.Query).To(Equal("do the thing"))
			Expect(turn.Loading).To(BeTrue())
			Expect(turn.Tip).To(Equal(conversation.DefaultTip))
			Expect(turn.SessionID).To(Equal(s.ID()))
			Expect(turn.RequestID).NotTo(BeEmpty())
			Expect(s.Busy()).To(BeTrue())
		})

		It("sends the session id, a fresh request id, and the model", func() {
			s := newAgentSession()
			_, err := s.Dispatch(context.Background(), "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Dispatch(context.Background(), "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(opener.request(0).SessionID).To(Equal(s.ID()))
			Expect(opener.request(1).SessionID).To(Equal(s.ID()))
			Expect(opener.request(0).RequestID).NotTo(Equal(opener.request(1).RequestID))
			Expect(opener.request(0).Model).To(Equal("qwen-plus"))
		})

		It("sets the title from the first query only", func() {
			s := newAgentSession()
			_, _ = s.Dispatch(context.Background(), "first query")
			_, _ = s.Dispatch(context.Background(), "second query")

			Expect(s.Title()).To(Equal("first query"))
		})

		It("routes the data agent without deep think to the data store", func() {
			s := newDataSession()
			h, err := s.Dispatch(context.Background(), "sales by region")
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Mode()).To(Equal(conversation.ModeData))
			Expect(s.DataTurns().Len()).To(Equal(1))
			Expect(s.AgentTurns().Len()).To(BeZero())

			turn, _ := s.DataTurns().Get(h)
			Expect(turn.Loading).To(BeTrue())
			Expect(turn.Think).To(BeEmpty())
		})

		It("routes the data agent with deep think to the agent store", func() {
			s := conversation.NewSession(conversation.Config{
				Product:   conversation.ProductDataAgent,
				DeepThink: true,
				Opener:    opener,
			})
			_, err := s.Dispatch(context.Background(), "deep dive")
			Expect(err).NotTo(HaveOccurred())

			Expect(s.AgentTurns().Len()).To(Equal(1))
			Expect(s.DataTurns().Len()).To(BeZero())
		})

		It("terminates the turn in place when the stream fails to open", func() {
			opener.err = errors.New("connection refused")
			s := newAgentSession()

			h, err := s.Dispatch(context.Background(), "doomed")
			Expect(err).To(HaveOccurred())

			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.Loading).To(BeFalse())
			Expect(turn.Response).To(Equal(conversation.FallbackError))
			Expect(s.Busy()).To(BeFalse())
		})
	})

	Describe("agent-mode streaming", func() {
		It("reconciles a start/response/finish sequence", func() {
			s := newAgentSession()
			h, _ := s.Dispatch(context.Background(), "report")
			handler := opener.handler(0)

			handler.OnMessage(ev(envelope.KindStart, "kicking off", false))
			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.Tip).To(Equal("kicking off"))

			handler.OnMessage(ev(envelope.KindResponse, "partial", false))
			turn, _ = s.AgentTurns().Get(h)
			Expect(turn.Response).To(Equal("partial"))
			Expect(turn.Tip).To(BeEmpty())
			Expect(turn.Loading).To(BeTrue())

			handler.OnMessage(ev(envelope.KindResponse, "partial and more", true))
			turn, _ = s.AgentTurns().Get(h)
			Expect(turn.Response).To(Equal("partial and more"))
			Expect(turn.Loading).To(BeFalse())
			Expect(s.Busy()).To(BeFalse())
		})

		It("handles an immediate error envelope", func() {
			s := newAgentSession()
			h, _ := s.Dispatch(context.Background(), "rate me")

			opener.handler(0).OnMessage(ev(envelope.KindError, "rate limited", false))

			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.Response).To(Equal("rate limited"))
			Expect(turn.Loading).To(BeFalse())
			Expect(s.Title()).To(Equal("rate me"))
		})

		It("ignores envelopes after a terminal one", func() {
			s := newAgentSession()
			h, _ := s.Dispatch(context.Background(), "q")
			handler := opener.handler(0)

			handler.OnMessage(ev(envelope.KindResponse, "final", true))
			handler.OnMessage(ev(envelope.KindResponse, "late straggler", false))

			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.Response).To(Equal("final"))
			Expect(turn.Loading).To(BeFalse())
		})

		It("keeps late events bound to their own turn when a second query is in flight", func() {
			s := newAgentSession()
			h1, _ := s.Dispatch(context.Background(), "first")
			h2, _ := s.Dispatch(context.Background(), "second")

			// The second turn is now last in the store; events for the first
			// stream must still land on the first turn.
			opener.handler(0).OnMessage(ev(envelope.KindResponse, "answer to first", true))

			first, _ := s.AgentTurns().Get(h1)
			second, _ := s.AgentTurns().Get(h2)
			Expect(first.Response).To(Equal("answer to first"))
			Expect(first.Loading).To(BeFalse())
			Expect(second.Response).To(BeEmpty())
			Expect(second.Loading).To(BeTrue())
		})

		It("stays busy until every in-flight turn has finished", func() {
			s := newAgentSession()
			_, _ = s.Dispatch(context.Background(), "first")
			_, _ = s.Dispatch(context.Background(), "second")
			Expect(s.Busy()).To(BeTrue())

			opener.handler(0).OnMessage(ev(envelope.KindResponse, "answer to first", true))
			Expect(s.Busy()).To(BeTrue(), "second turn is still streaming")

			opener.handler(1).OnMessage(ev(envelope.KindError, "second failed", false))
			Expect(s.Busy()).To(BeFalse())
		})

		It("does not go idle when close follows a terminal envelope on one of two streams", func() {
			s := newAgentSession()
			_, _ = s.Dispatch(context.Background(), "first")
			_, _ = s.Dispatch(context.Background(), "second")

			opener.handler(0).OnMessage(ev(envelope.KindResponse, "done", true))
			opener.handler(0).OnClose()
			Expect(s.Busy()).To(BeTrue(), "each stream retires its turn once")

			opener.handler(1).OnClose()
			Expect(s.Busy()).To(BeFalse())
		})

		It("marks a still-loading turn as force-stopped when the stream closes", func() {
			s := newAgentSession()
			h, _ := s.Dispatch(context.Background(), "q")

			opener.handler(0).OnClose()

			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.Loading).To(BeFalse())
			Expect(turn.ForceStop).To(BeTrue())
			Expect(s.Busy()).To(BeFalse())
		})

		It("does not force-stop a turn that already finished", func() {
			s := newAgentSession()
			h, _ := s.Dispatch(context.Background(), "q")
			handler := opener.handler(0)

			handler.OnMessage(ev(envelope.KindResponse, "done", true))
			handler.OnClose()

			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.ForceStop).To(BeFalse())
			Expect(turn.Response).To(Equal("done"))
		})

		It("terminates the turn on a transport error, preserving partial text", func() {
			s := newAgentSession()
			h, _ := s.Dispatch(context.Background(), "q")
			handler := opener.handler(0)

			handler.OnMessage(ev(envelope.KindResponse, "partial answer", false))
			handler.OnError(errors.New("connection reset"))

			turn, _ := s.AgentTurns().Get(h)
			Expect(turn.Loading).To(BeFalse())
			Expect(turn.Response).To(Equal("partial answer"))
			Expect(s.Busy()).To(BeFalse())
		})
	})

	Describe("data-mode streaming", func() {
		It("reconciles the chart scenario end to end", func() {
			s := newDataSession()
			h, _ := s.Dispatch(context.Background(), "sales by region")
			handler := opener.handler(0)

			handler.OnMessage(ev(envelope.KindStart, "analyzing", false))
			turn, _ := s.DataTurns().Get(h)
			Expect(turn.Think).To(Equal("analyzing"))
			Expect(turn.Loading).To(BeTrue())

			text := "Here: ```json\n{\"series\":[1,2,3]}\n```"
			handler.OnMessage(ev(envelope.KindResponse, text, true))

			turn, _ = s.DataTurns().Get(h)
			Expect(turn.Response).To(Equal(text))
			Expect(turn.Chart["series"]).To(Equal([]any{1.0, 2.0, 3.0}))
			Expect(turn.Loading).To(BeFalse())
		})

		It("records an error fallback when the stream closes with no content", func() {
			s := newDataSession()
			h, _ := s.Dispatch(context.Background(), "q")

			opener.handler(0).OnClose()

			turn, _ := s.DataTurns().Get(h)
			Expect(turn.Loading).To(BeFalse())
			Expect(turn.Error).To(Equal(conversation.FallbackClosed))
		})

		It("keeps delivered content when the stream closes early", func() {
			s := newDataSession()
			h, _ := s.Dispatch(context.Background(), "q")
			handler := opener.handler(0)

			handler.OnMessage(ev(envelope.KindResponse, "some text", false))
			handler.OnClose()

			turn, _ := s.DataTurns().Get(h)
			Expect(turn.Loading).To(BeFalse())
			Expect(turn.Error).To(BeEmpty())
			Expect(turn.Response).To(Equal("some text"))
		})
	})

	Describe("scroll notifications", func() {
		It("fires after every publish", func() {
			var scrolls int
			s := conversation.NewSession(conversation.Config{
				Product:  conversation.ProductAgent,
				Opener:   opener,
				OnScroll: func() { scrolls++ },
			})

			_, _ = s.Dispatch(context.Background(), "q")
			handler := opener.handler(0)
			handler.OnMessage(ev(envelope.KindStart, "go", false))
			handler.OnMessage(ev(envelope.KindResponse, "text", true))
			handler.OnMessage(ev("bogus", "ignored", false))

			Expect(scrolls).To(Equal(2), "no scroll for no-op envelopes")
		})
	})
})

var _ = Describe("UIState", func() {
	It("opens the panel when a task is selected", func() {
		var ui conversation.UIState
		Expect(ui.PanelOpen()).To(BeFalse())

		ui.SelectTask(conversation.Task{ID: "t1", Title: "Query the database"})

		Expect(ui.PanelOpen()).To(BeTrue())
		task, ok := ui.ActiveTask()
		Expect(ok).To(BeTrue())
		Expect(task.ID).To(Equal("t1"))
	})

	It("records the plan without opening the panel", func() {
		var ui conversation.UIState
		ui.SetPlan(conversation.Plan{Title: "three steps"})

		Expect(ui.PanelOpen()).To(BeFalse())
		plan, ok := ui.ActivePlan()
		Expect(ok).To(BeTrue())
		Expect(plan.Title).To(Equal("three steps"))

		ui.OpenPlan()
		Expect(ui.PanelOpen()).To(BeTrue())
	})

	It("closing the panel keeps the focused entities", func() {
		var ui conversation.UIState
		ui.SelectFile(conversation.File{Name: "report.csv"})
		ui.ClosePanel()

		Expect(ui.PanelOpen()).To(BeFalse())
		file, ok := ui.ActiveFile()
		Expect(ok).To(BeTrue())
		Expect(file.Name).To(Equal("report.csv"))
	})
})
