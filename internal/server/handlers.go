package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rescriber/pii-gateway/internal/events"
	"github.com/rescriber/pii-gateway/internal/pipeline"
	"github.com/rescriber/pii-gateway/internal/stream"
	"go.uber.org/zap"
)

// messageRequest is the body accepted by both streaming endpoints
type messageRequest struct {
	Message string `json:"message"`
}

// handleDetect streams PII detection snapshots for the posted message
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	s.handleStream(w, r, "detect", pipeline.Spec{
		SystemPrompt: s.config.Prompts.Detect,
		Chunking:     true,
	})
}

// handleAbstract streams abstraction snapshots; the full message goes to the
// model as a single chunk
func (s *Server) handleAbstract(w http.ResponseWriter, r *http.Request) {
	s.handleStream(w, r, "abstract", pipeline.Spec{
		SystemPrompt: s.config.Prompts.Abstract,
		Chunking:     false,
	})
}

// handleStream validates the request, then drives the pipeline and writes one
// NDJSON line per snapshot. Once the stream has started, errors close the
// response without an error payload; the client never sees malformed JSON.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, endpoint string, spec pipeline.Spec) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		log.Info("rejecting request without message", zap.String("endpoint", endpoint))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "No message provided"})
		return
	}

	log.Info("request accepted",
		zap.String("endpoint", endpoint),
		zap.Int("message_bytes", len(req.Message)),
	)

	w.Header().Set("Content-Type", "application/json")
	flusher, canFlush := w.(http.Flusher)
	enc := json.NewEncoder(w)

	emitted := 0
	err := s.pipeline.Run(r.Context(), req.Message, spec, func(snap stream.Snapshot) error {
		if err := enc.Encode(snap); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		emitted++

		s.hub.Broadcast(events.Event{
			Type:      events.EventTypeSnapshot,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: events.SnapshotEvent{
				Endpoint:    endpoint,
				ResultCount: len(snap.Results),
				Results:     snap.Results,
			},
		})
		return nil
	})
	if err != nil {
		log.Error("stream aborted",
			zap.String("endpoint", endpoint),
			zap.Int("snapshots_emitted", emitted),
			zap.Error(err),
		)
		if emitted == 0 {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "inference engine unavailable"})
		}
		return
	}

	log.Info("stream complete",
		zap.String("endpoint", endpoint),
		zap.Int("snapshots_emitted", emitted),
	)
}
