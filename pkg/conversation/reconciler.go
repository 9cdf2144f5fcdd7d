package conversation

import (
	"github.com/genie-cli/genie/pkg/chart"
	"github.com/genie-cli/genie/pkg/envelope"
)

// Fallback strings shown when an envelope carries no usable message.
const (
	// DefaultTip seeds a freshly dispatched agent turn and replaces an
	// empty start message.
	DefaultTip = "Task received, starting shortly..."

	// FallbackError replaces an empty error message.
	FallbackError = "Something went wrong while processing the request."

	// FallbackThink replaces an empty start message on a data turn.
	FallbackThink = "Processing..."

	// FallbackClosed marks a data turn whose stream ended before any
	// response content arrived.
	FallbackClosed = "The stream closed before a response arrived."
)

// Outcome describes how an envelope affected a turn.
type Outcome struct {
	// Publish means the mutated turn must replace its store entry.
	Publish bool

	// Terminal means no further envelope may mutate the turn.
	Terminal bool
}

// Reconciler applies one stream envelope to a turn, producing the next turn
// state. Implementations are pure: publishing the result and enforcing
// terminality belong to the session plumbing, which is shared between modes.
type Reconciler[T any] interface {
	Apply(turn T, ev *envelope.Envelope) (T, Outcome)
}

// AgentReconciler interprets envelopes for the multi-step agent mode.
type AgentReconciler struct{}

// Apply implements the agent-mode transitions:
//
//   - error: terminal; the message (or fallback) becomes the response.
//   - start: the message (or fallback) becomes the progress tip.
//   - response: only when a message is present. The full-so-far text
//     replaces the response, the tip is retired, and the turn stops
//     loading when finished.
//   - anything else: no-op, for forward compatibility.
func (AgentReconciler) Apply(turn AgentTurn, ev *envelope.Envelope) (AgentTurn, Outcome) {
	switch ev.Kind {
	case envelope.KindError:
		turn.Loading = false
		turn.Response = ev.TextOr(FallbackError)
		return turn, Outcome{Publish: true, Terminal: true}

	case envelope.KindStart:
		turn.Tip = ev.TextOr(DefaultTip)
		turn.Loading = true
		return turn, Outcome{Publish: true}

	case envelope.KindResponse:
		if !ev.HasMessage() {
			return turn, Outcome{}
		}
		turn.Response = ev.Text()
		turn.Tip = ""
		turn.Loading = !ev.Finished
		return turn, Outcome{Publish: true, Terminal: ev.Finished}

	default:
		return turn, Outcome{}
	}
}

// DataReconciler interprets envelopes for data-analysis mode.
type DataReconciler struct{}

// Apply implements the data-mode transitions. Response envelopes always act:
// the chart extractor runs over the message and, on success, updates the
// chart spec — but extraction failure never discards the text, which is
// stored verbatim either way.
func (DataReconciler) Apply(turn DataTurn, ev *envelope.Envelope) (DataTurn, Outcome) {
	switch ev.Kind {
	case envelope.KindError:
		turn.Error = ev.TextOr(FallbackError)
		turn.Loading = false
		return turn, Outcome{Publish: true, Terminal: true}

	case envelope.KindStart:
		turn.Think = ev.TextOr(FallbackThink)
		return turn, Outcome{Publish: true}

	case envelope.KindResponse:
		if spec, ok := chart.Extract(ev.Text()); ok {
			turn.Chart = spec
		}
		turn.Response = ev.Text()
		if ev.Finished {
			turn.Loading = false
		}
		return turn, Outcome{Publish: true, Terminal: ev.Finished}

	default:
		return turn, Outcome{}
	}
}
