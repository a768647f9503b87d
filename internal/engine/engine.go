// Package engine provides the inference engine capability: submitting a
// system prompt plus user text and consuming the resulting delta stream.
package engine

import "context"

// Delta is one incremental fragment of the model's response. The fragment
// carrying Done has no content; a non-nil Err terminates the stream.
type Delta struct {
	Content string
	Done    bool
	Err     error
}

// Engine is the capability consumed by the request pipeline. The returned
// channel is closed after the Done (or Err) delta. Each invocation owns its
// stream; it is consumed exactly once and never replayed.
type Engine interface {
	Chat(ctx context.Context, systemPrompt, userText string) (<-chan Delta, error)
}
