// Package server provides a development agent backend that speaks the same
// SSE chat protocol the genie client consumes. It answers queries from a
// small scripted responder so the chat and ui commands can be exercised
// without a real agent deployment.
package server

// Config is the dev server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string
}
