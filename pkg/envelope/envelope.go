// Package envelope defines the wire-level unit delivered over the chat
// stream: a discriminated payload with a kind, an optional message, and a
// completion flag. Envelopes are decoded and validated at the transport
// boundary so that malformed frames never reach turn reconciliation.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the envelope payload.
type Kind string

const (
	// KindStart announces that the agent accepted the query and carries a
	// human-readable progress tip.
	KindStart Kind = "start"

	// KindResponse carries the full-so-far response text. Each response
	// envelope replaces the previous one; it is not a delta.
	KindResponse Kind = "response"

	// KindError terminates the turn with a server-side error message.
	KindError Kind = "error"
)

// ErrMissingKind indicates a frame with no type discriminator. Such frames
// are logged and dropped by the transport without terminating the stream.
var ErrMissingKind = errors.New("envelope missing type field")

// Envelope is one unit of the streamed chat protocol.
//
// Message is a pointer so that an absent message can be told apart from an
// empty one: a response envelope with no message field is a no-op, while an
// empty message legitimately clears the response text.
type Envelope struct {
	Kind      Kind    `json:"type"`
	RequestID string  `json:"request_id,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	Message   *string `json:"message,omitempty"`
	Finished  bool    `json:"finished,omitempty"`
}

// Parse decodes a single stream frame into an Envelope.
// Unknown kinds parse successfully; callers treat them as no-ops for
// forward compatibility. A frame without a kind is rejected.
func Parse(data []byte) (*Envelope, error) {
	var ev Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	if ev.Kind == "" {
		return nil, ErrMissingKind
	}

	return &ev, nil
}

// Recognized reports whether the kind is part of the closed protocol set.
func (e *Envelope) Recognized() bool {
	switch e.Kind {
	case KindStart, KindResponse, KindError:
		return true
	}
	return false
}

// HasMessage reports whether the message field was present on the wire.
func (e *Envelope) HasMessage() bool {
	return e.Message != nil
}

// Text returns the message text, or "" when the field was absent.
func (e *Envelope) Text() string {
	if e.Message == nil {
		return ""
	}
	return *e.Message
}

// TextOr returns the message text, falling back when the message is absent
// or empty. Progress tips and error strings always render something.
func (e *Envelope) TextOr(fallback string) string {
	if e.Message == nil || *e.Message == "" {
		return fallback
	}
	return *e.Message
}

// String is a compact debug representation used in transport logs.
func (e *Envelope) String() string {
	return fmt.Sprintf("envelope{kind=%s finished=%t len=%d}", e.Kind, e.Finished, len(e.Text()))
}
