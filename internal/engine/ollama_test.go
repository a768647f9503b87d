package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rescriber/pii-gateway/internal/config"
	"github.com/rescriber/pii-gateway/internal/logger"
)

// fakeOllamaServer replays the given delta contents as an NDJSON chat stream
func fakeOllamaServer(t *testing.T, contents []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("malformed chat request: %v", err)
		}
		if !req.Stream || req.Format != "json" {
			t.Errorf("expected streaming json request, got %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, content := range contents {
			enc.Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: content}})
		}
		enc.Encode(chatResponse{Done: true})
	}))
}

func TestOllamaChat(t *testing.T) {
	t.Run("StreamsDeltasInOrder", func(t *testing.T) {
		contents := []string{`{"results": [`, `{"entity_type": "NAME"`, `, "text": "Jane"}]}`}
		ts := fakeOllamaServer(t, contents)
		defer ts.Close()

		eng := NewOllama(config.EngineConfig{URL: ts.URL, Model: "llama3"}, logger.Nop())
		deltas, err := eng.Chat(context.Background(), "system prompt", "user text")
		if err != nil {
			t.Fatalf("chat failed: %v", err)
		}

		var got []string
		sawDone := false
		for d := range deltas {
			if d.Err != nil {
				t.Fatalf("unexpected delta error: %v", d.Err)
			}
			if d.Done {
				sawDone = true
				continue
			}
			got = append(got, d.Content)
		}
		if !sawDone {
			t.Error("stream ended without a done delta")
		}
		if len(got) != len(contents) {
			t.Fatalf("got %d deltas, want %d", len(got), len(contents))
		}
		for i := range got {
			if got[i] != contents[i] {
				t.Errorf("delta %d = %q, want %q", i, got[i], contents[i])
			}
		}
	})

	t.Run("EngineErrorSurfacesAsDelta", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"error":"model not found"}`)
		}))
		defer ts.Close()

		eng := NewOllama(config.EngineConfig{URL: ts.URL, Model: "nope"}, logger.Nop())
		deltas, err := eng.Chat(context.Background(), "s", "u")
		if err != nil {
			t.Fatalf("chat failed: %v", err)
		}

		var lastErr error
		for d := range deltas {
			lastErr = d.Err
		}
		if lastErr == nil {
			t.Fatal("expected an error delta")
		}
	})

	t.Run("BadStatusFailsInvocation", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		eng := NewOllama(config.EngineConfig{URL: ts.URL, Model: "llama3"}, logger.Nop())
		if _, err := eng.Chat(context.Background(), "s", "u"); err == nil {
			t.Fatal("expected an invocation error on HTTP 500")
		}
	})

	t.Run("AbandonedStreamStopsProducing", func(t *testing.T) {
		contents := make([]string, 100)
		for i := range contents {
			contents[i] = "delta"
		}
		ts := fakeOllamaServer(t, contents)
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		eng := NewOllama(config.EngineConfig{URL: ts.URL, Model: "llama3"}, logger.Nop())
		deltas, err := eng.Chat(ctx, "s", "u")
		if err != nil {
			t.Fatalf("chat failed: %v", err)
		}

		<-deltas
		cancel()
		// The producer must eventually close the channel instead of
		// blocking forever on an unread delta.
		for range deltas {
		}
	})
}
