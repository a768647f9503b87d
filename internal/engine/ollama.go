package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rescriber/pii-gateway/internal/config"
	"github.com/rescriber/pii-gateway/internal/logger"
	"go.uber.org/zap"
)

// Ollama drives a local Ollama server through its /api/chat endpoint with
// streaming enabled, decoding the NDJSON response into deltas.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *logger.Logger
}

// NewOllama creates an Ollama engine client
func NewOllama(cfg config.EngineConfig, log *logger.Logger) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
		logger: log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// Chat opens one model invocation and returns its delta stream. The request
// forces JSON output and zero temperature so repeated invocations over the
// same chunk are as deterministic as the model allows.
func (o *Ollama) Chat(ctx context.Context, systemPrompt, userText string) (<-chan Delta, error) {
	reqBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Stream:  true,
		Format:  "json",
		Options: map[string]any{"temperature": 0},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	deltas := make(chan Delta)
	go func() {
		defer close(deltas)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				o.sendDelta(ctx, deltas, Delta{Err: fmt.Errorf("malformed engine response: %w", err)})
				return
			}
			if chunk.Error != "" {
				o.sendDelta(ctx, deltas, Delta{Err: fmt.Errorf("engine error: %s", chunk.Error)})
				return
			}
			if chunk.Done {
				o.sendDelta(ctx, deltas, Delta{Done: true})
				return
			}
			if !o.sendDelta(ctx, deltas, Delta{Content: chunk.Message.Content}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			o.sendDelta(ctx, deltas, Delta{Err: fmt.Errorf("engine stream read failed: %w", err)})
		}
	}()

	return deltas, nil
}

// sendDelta delivers a delta unless the request context is gone. Abandoned
// streams (client disconnects) are dropped here rather than leaking the
// producing goroutine.
func (o *Ollama) sendDelta(ctx context.Context, deltas chan<- Delta, d Delta) bool {
	select {
	case deltas <- d:
		return true
	case <-ctx.Done():
		o.logger.Debug("delta stream abandoned", zap.Error(ctx.Err()))
		return false
	}
}
