package chatcmder

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/genie-cli/genie/pkg/chart"
	"github.com/genie-cli/genie/pkg/cliui"
	"github.com/genie-cli/genie/pkg/conversation"
)

// renderer turns store updates for one in-flight turn into plain terminal
// output. Response envelopes carry the full text so far, so the renderer
// tracks what it already printed and emits only the new suffix.
type renderer struct {
	out     io.Writer
	session *conversation.Session
	render  func(string) (string, error)

	mu      sync.Mutex
	handle  conversation.Handle
	active  bool
	printed string
	tip     string
	think   string
	done    chan struct{}
}

func newRenderer(out io.Writer, session *conversation.Session) *renderer {
	return &renderer{
		out:     out,
		session: session,
		render:  cliui.RenderMarkdown,
	}
}

// begin resets the renderer for a freshly dispatched turn.
func (r *renderer) begin(h conversation.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = h
	r.active = true
	r.printed = ""
	r.tip = ""
	r.think = ""
	r.done = make(chan struct{})
}

// wait blocks until the active turn reaches a terminal state.
func (r *renderer) wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// onAgentUpdate is the store subscriber for agent mode.
func (r *renderer) onAgentUpdate(h conversation.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || h != r.handle {
		return
	}

	turn, ok := r.session.AgentTurns().Get(h)
	if !ok {
		return
	}

	if turn.Tip != "" && turn.Tip != r.tip {
		r.tip = turn.Tip
		fmt.Fprintf(r.out, "  %s\n", cliui.TipStyle.Render(turn.Tip))
	}

	r.printResponse(turn.Response)

	if !turn.Loading {
		if turn.ForceStop && r.printed == "" {
			fmt.Fprintf(r.out, "  %s %s\n", cliui.FailMark, "The stream closed before the task finished.")
		}
		if !turn.ForceStop {
			r.renderFinal(turn.Response)
		}
		r.finish()
	}
}

// onDataUpdate is the store subscriber for data analysis mode.
func (r *renderer) onDataUpdate(h conversation.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || h != r.handle {
		return
	}

	turn, ok := r.session.DataTurns().Get(h)
	if !ok {
		return
	}

	if turn.Think != "" && turn.Think != r.think {
		r.think = turn.Think
		fmt.Fprintf(r.out, "  %s\n", cliui.ThinkStyle.Render(turn.Think))
	}

	r.printResponse(turn.Response)

	if !turn.Loading {
		if turn.Error != "" {
			fmt.Fprintf(r.out, "  %s %s\n", cliui.FailMark, turn.Error)
		}
		if turn.Chart != nil {
			fmt.Fprintf(r.out, "\n  %s %s\n", cliui.KeyStyle.Render("Chart:"), chartSummary(turn.Chart))
		}
		if turn.Error == "" {
			r.renderFinal(turn.Response)
		}
		r.finish()
	}
}

// printResponse emits the not-yet-printed portion of the response text.
// Callers hold r.mu.
func (r *renderer) printResponse(text string) {
	if text == "" || text == r.printed {
		return
	}

	if r.printed == "" {
		fmt.Fprint(r.out, assistantPrompt)
	}

	if strings.HasPrefix(text, r.printed) {
		fmt.Fprint(r.out, text[len(r.printed):])
	} else {
		// The backend rewrote earlier text; start the line over.
		fmt.Fprintf(r.out, "\n%s%s", assistantPrompt, text)
	}
	r.printed = text
}

// renderFinal reprints the finished response through glamour when it carries
// markdown structure. Plain one-line answers stay as streamed; rendering
// failures fall back to the raw text already on screen. Callers hold r.mu.
func (r *renderer) renderFinal(text string) {
	if !hasMarkdown(text) {
		return
	}
	rendered, err := r.render(text)
	if err != nil {
		return
	}
	fmt.Fprintf(r.out, "\n%s", rendered)
}

// hasMarkdown reports whether text has block structure worth re-rendering:
// headings, fenced code, lists, or tables.
func hasMarkdown(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"),
			strings.HasPrefix(trimmed, "```"),
			strings.HasPrefix(trimmed, "- "),
			strings.HasPrefix(trimmed, "* "),
			strings.HasPrefix(trimmed, "|"):
			return true
		}
	}
	return false
}

// finish closes the done channel exactly once. Callers hold r.mu.
func (r *renderer) finish() {
	if !r.active {
		return
	}
	r.active = false
	fmt.Fprintln(r.out)
	close(r.done)
}

// chartSummary renders a one-line description of an extracted chart spec.
func chartSummary(spec chart.Spec) string {
	parts := []string{}
	if title := spec.Title(); title != "" {
		parts = append(parts, fmt.Sprintf("%q", title))
	}
	if typ := spec.Type(); typ != "" {
		parts = append(parts, typ)
	}
	parts = append(parts, fmt.Sprintf("%d series", spec.SeriesCount()))
	return cliui.ValueStyle.Render(strings.Join(parts, ", "))
}
