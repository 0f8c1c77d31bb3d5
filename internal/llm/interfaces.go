// Package llm provides streaming access to OpenAI-compatible chat
// completion APIs, protected by a circuit breaker.
package llm

import "context"

// Message roles understood by the chat completions API.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged entry of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamDelta is one fragment of a streaming generation. At most one delta
// carries a non-nil Err, and it is always the last one before the channel
// closes.
type StreamDelta struct {
	Content string
	Err     error
}

// ChatStreamer generates chat completions as an ordered stream of text
// fragments. ChatStream returns an error only when the stream could not be
// established at all; failures after the first fragment arrive in-band as a
// final StreamDelta with Err set.
type ChatStreamer interface {
	ChatStream(ctx context.Context, messages []Message, temperature float64) (<-chan StreamDelta, error)

	// GetModel returns the model name requests are issued against.
	GetModel() string
}
