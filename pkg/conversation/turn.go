package conversation

import "github.com/genie-cli/genie/pkg/chart"

// AgentTurn is one query/response exchange in the multi-step agent mode.
// It is created when the query is dispatched and mutated by the reconciler
// on every stream envelope until a terminal envelope arrives, after which it
// is never touched again.
type AgentTurn struct {
	// Query is the user's submitted text.
	Query string

	// Files are attachments submitted with the query.
	Files []File

	// SessionID is stable across every turn of a session.
	SessionID string

	// RequestID is unique per turn.
	RequestID string

	// Tip is a transient progress message shown until response content
	// arrives; the first response envelope retires it.
	Tip string

	// Response is the accumulated response text. Each response envelope
	// carries the full-so-far text, so this is replaced, never appended.
	Response string

	// Thought is the agent's structured reasoning trace, when provided.
	Thought string

	// Tasks are the sub-task records reported for this turn, forwarded to
	// the side panel.
	Tasks []Task

	// TaskStatus is the numeric status code reported by the agent.
	TaskStatus int

	// Loading is true while the stream for this turn is open and unfinished.
	Loading bool

	// ForceStop records that the stream closed before a finished response.
	ForceStop bool
}

// DataTurn is one query/response exchange in data-analysis mode, where the
// response may embed a chart specification.
type DataTurn struct {
	Query string

	// Think is the transient status message from the start envelope.
	Think string

	// Response is the full-so-far response text, chart block included.
	Response string

	// Chart is the extracted chart specification, set only when the
	// response text contained a well-formed embedded block.
	Chart chart.Spec

	// Error is the terminal error message; non-empty implies Loading=false.
	Error string

	Loading bool
}

// Task is a sub-task record owned by the side panel; the core only forwards
// references to it.
type Task struct {
	ID          string
	MessageType string
	Title       string
	Status      string
}

// Plan is the agent's execution plan, rendered by the side panel.
type Plan struct {
	Title string
	Steps []string
}

// File is an attachment or produced artifact referenced by a turn.
type File struct {
	Name string
	Path string
}
