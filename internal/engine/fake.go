package engine

import (
	"context"
	"sync"
)

// Fake is a scripted engine for tests. Each Chat call consumes the next
// script in order and replays its deltas followed by a done delta; when the
// scripts run out the last one is reused.
type Fake struct {
	Scripts [][]string
	Err     error // returned by Chat when set

	mu    sync.Mutex
	calls int
}

// NewFake creates a fake engine replaying one script per invocation
func NewFake(scripts ...[]string) *Fake {
	return &Fake{Scripts: scripts}
}

// Calls reports how many invocations have been opened
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) Chat(ctx context.Context, systemPrompt, userText string) (<-chan Delta, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	f.mu.Lock()
	idx := f.calls
	f.calls++
	if idx >= len(f.Scripts) {
		idx = len(f.Scripts) - 1
	}
	var script []string
	if idx >= 0 {
		script = f.Scripts[idx]
	}
	f.mu.Unlock()

	deltas := make(chan Delta)
	go func() {
		defer close(deltas)
		for _, content := range script {
			select {
			case deltas <- Delta{Content: content}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case deltas <- Delta{Done: true}:
		case <-ctx.Done():
		}
	}()
	return deltas, nil
}
