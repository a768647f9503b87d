package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/rescriber/pii-gateway/internal/config"
	"github.com/rescriber/pii-gateway/internal/engine"
	"github.com/rescriber/pii-gateway/internal/logger"
	"github.com/rescriber/pii-gateway/internal/pipeline"
	"github.com/rescriber/pii-gateway/internal/stream"
)

func newTestServer(eng engine.Engine) *Server {
	cfg := config.GetDefaults()
	cfg.Events.Enabled = false
	log := logger.Nop()
	return New(cfg, log, pipeline.New(eng, cfg, log))
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// decodeLines parses every NDJSON line of a streaming response body
func decodeLines(t *testing.T, body *bytes.Buffer) []stream.Snapshot {
	t.Helper()
	var snaps []stream.Snapshot
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var snap stream.Snapshot
		if err := json.Unmarshal([]byte(line), &snap); err != nil {
			t.Fatalf("response line is not valid JSON: %q: %v", line, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

func TestDetectRejectsEmptyMessage(t *testing.T) {
	for _, body := range []string{`{"message": ""}`, `{}`, ``, `{"other": "x"}`} {
		fake := engine.NewFake()
		s := newTestServer(fake)

		rec := postJSON(t, s, "/detect", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("body %q: bad error payload: %v", body, err)
		}
		if resp["error"] != "No message provided" {
			t.Errorf("body %q: error = %q", body, resp["error"])
		}
		if fake.Calls() != 0 {
			t.Errorf("body %q: engine invoked %d times before validation", body, fake.Calls())
		}
	}
}

func TestDetectStreamsSnapshots(t *testing.T) {
	fake := engine.NewFake(
		[]string{
			`{"results": [`,
			`{"entity_type": "NAME", "text": "Jane Doe"}`,
			`, {"entity_type": "EMAIL", "text": "jane@x.com"}`,
			`]}`,
		},
	)
	s := newTestServer(fake)

	rec := postJSON(t, s, "/detect", `{"message": "My name is Jane Doe and my email is jane@x.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	snaps := decodeLines(t, rec.Body)
	if len(snaps) == 0 {
		t.Fatal("no snapshots in response")
	}

	// Monotonic, order-stable growth across the emitted sequence.
	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1].Results, snaps[i].Results
		if len(cur) < len(prev) || !reflect.DeepEqual(cur[:len(prev)], prev) {
			t.Fatalf("snapshot %d is not a prefix-preserving extension", i)
		}
	}

	want := []stream.ResultItem{
		{EntityType: "NAME", Text: "Jane Doe"},
		{EntityType: "EMAIL", Text: "jane@x.com"},
	}
	last := snaps[len(snaps)-1].Results
	if !reflect.DeepEqual(last, want) {
		t.Errorf("final snapshot = %+v, want %+v", last, want)
	}
}

func TestAbstractSingleInvocation(t *testing.T) {
	fake := engine.NewFake(
		[]string{`{"results": [{"protected": "CMU", "abstracted": "a prestigious university"}]}`},
	)
	s := newTestServer(fake)

	rec := postJSON(t, s, "/abstract", `{"message": "I work at CMU"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if fake.Calls() != 1 {
		t.Errorf("abstract must not chunk: %d invocations", fake.Calls())
	}

	snaps := decodeLines(t, rec.Body)
	last := snaps[len(snaps)-1].Results
	if len(last) != 1 || last[0].Protected != "CMU" || last[0].Abstracted == "" {
		t.Errorf("final snapshot = %+v", last)
	}
}

func TestEngineDownReturnsBadGateway(t *testing.T) {
	fake := engine.NewFake()
	fake.Err = errors.New("connection refused")
	s := newTestServer(fake)

	rec := postJSON(t, s, "/detect", `{"message": "hello there"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(engine.NewFake())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
