// Package stream reconstructs growing JSON result sets from the incremental
// delta stream of a model invocation and merges them across chunks.
package stream

// ResultItem is one entry in a model's "results" array. Detection responses
// fill entity_type/text; abstraction responses fill protected/abstracted.
// Spans are kept exactly as the model claims them; nothing verifies that the
// span actually occurs in the input text.
type ResultItem struct {
	EntityType string `json:"entity_type,omitempty"`
	Text       string `json:"text,omitempty"`
	Protected  string `json:"protected,omitempty"`
	Abstracted string `json:"abstracted,omitempty"`
}

// Snapshot is one complete, valid result set known at a point in time,
// serialized to the client as a single NDJSON line.
type Snapshot struct {
	Results []ResultItem `json:"results"`
}
