// Package events broadcasts gateway activity to websocket subscribers, so a
// UI can show detections live without polling the response streams.
package events

import (
	"time"

	"github.com/rescriber/pii-gateway/internal/stream"
)

// EventType represents the type of broadcast event
type EventType string

const (
	// EventTypeSnapshot is emitted for every result snapshot sent to a client
	EventTypeSnapshot EventType = "snapshot"
	// EventTypeRequestLog is emitted when a request completes
	EventTypeRequestLog EventType = "request_log"
	// EventTypeConnection is emitted on subscriber connect/disconnect
	EventTypeConnection EventType = "connection"
)

// Event is one message sent to subscribers
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data"`
}

// SnapshotEvent mirrors a snapshot emitted on a response stream
type SnapshotEvent struct {
	Endpoint    string              `json:"endpoint"`
	ResultCount int                 `json:"result_count"`
	Results     []stream.ResultItem `json:"results"`
}

// RequestLogEvent describes a completed HTTP request
type RequestLogEvent struct {
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	ClientIP   string        `json:"client_ip"`
	Duration   time.Duration `json:"duration"`
}

// ConnectionEvent describes a subscriber joining or leaving
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected" or "disconnected"
	ClientID string `json:"client_id"`
}
