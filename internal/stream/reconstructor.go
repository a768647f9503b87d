package stream

import (
	"github.com/rescriber/pii-gateway/internal/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// parseState tracks where the cursor sits inside the expected
// {"results":[...]} object.
type parseState int

const (
	stateBeforeArray parseState = iota // results array not yet opened
	stateInItem                        // inside an array element
	stateAfterItem                     // between elements
	stateClosed                        // array and enclosing object closed
)

// Reconstructor turns the delta stream of one model invocation into a
// sequence of best-effort-valid snapshots. Most prefixes of the stream are
// not valid JSON; a snapshot is attempted only when a delta carries a closing
// bracket or brace, by truncating the cumulative buffer at the last
// structural close and appending the minimal closers for a complete
// {"results":[...]} object. Parse failures skip the round and are retried on
// the next delta, never surfaced.
type Reconstructor struct {
	buf       []byte
	maxBuffer int

	// incremental scanner state, advanced once per appended byte
	state       parseState
	depth       int
	inString    bool
	escaped     bool
	arrayOpen   bool
	lastBracket int // offset of last structural ']' in buf, -1 if none
	lastBrace   int // offset of last structural '}' in buf, -1 if none

	lastValid  string // raw text of the last snapshot that parsed cleanly
	overflowed bool

	logger *logger.Logger
}

// NewReconstructor creates a reconstructor for one invocation. maxBuffer caps
// the cumulative delta buffer; a stream that exceeds it contributes nothing.
func NewReconstructor(maxBuffer int, log *logger.Logger) *Reconstructor {
	return &Reconstructor{
		maxBuffer:   maxBuffer,
		lastBracket: -1,
		lastBrace:   -1,
		logger:      log,
	}
}

// Feed appends one delta and attempts to produce a snapshot. It returns the
// parsed result items and true when the repaired buffer parses cleanly;
// otherwise the delta is treated as still-incomplete and nothing is emitted.
func (r *Reconstructor) Feed(delta string) ([]ResultItem, bool) {
	if r.overflowed {
		return nil, false
	}
	if len(r.buf)+len(delta) > r.maxBuffer {
		r.overflowed = true
		r.logger.Warn("partial buffer exceeded limit, chunk will contribute no results",
			zap.Int("limit_bytes", r.maxBuffer),
		)
		return nil, false
	}

	from := len(r.buf)
	r.buf = append(r.buf, delta...)
	addedBracket, addedBrace := r.advance(from)
	if !addedBracket && !addedBrace {
		return nil, false
	}

	candidate, ok := r.repair(addedBracket)
	if !ok {
		return nil, false
	}
	items, ok := parseResults(candidate)
	if !ok {
		r.logger.Debug("repaired prefix did not parse, awaiting more deltas",
			zap.Int("buffered_bytes", len(r.buf)),
		)
		return nil, false
	}

	r.lastValid = candidate
	return items, true
}

// Finalize performs the terminal parse after the stream's done signal and
// returns this invocation's finalized contribution. An unparseable or
// overflowed stream contributes nothing; that is logged, never raised.
func (r *Reconstructor) Finalize() []ResultItem {
	if r.overflowed {
		return nil
	}
	if r.lastValid == "" {
		r.logger.Warn("stream ended without a parseable snapshot",
			zap.Int("buffered_bytes", len(r.buf)),
			zap.Int("state", int(r.state)),
		)
		return nil
	}
	items, ok := parseResults(r.lastValid)
	if !ok {
		r.logger.Warn("final snapshot failed terminal parse")
		return nil
	}
	return items
}

// advance moves the scanner over buf[from:], maintaining string/nesting state
// and recording the offsets of structural closers. It reports whether the new
// bytes carried a structural ']' or '}'. Brackets inside string literals are
// never treated as structural, which is the one place this deliberately
// differs from a plain last-index search.
func (r *Reconstructor) advance(from int) (addedBracket, addedBrace bool) {
	for i := from; i < len(r.buf); i++ {
		c := r.buf[i]
		if r.inString {
			switch {
			case r.escaped:
				r.escaped = false
			case c == '\\':
				r.escaped = true
			case c == '"':
				r.inString = false
			}
			continue
		}
		switch c {
		case '"':
			r.inString = true
		case '{':
			if r.arrayOpen && r.depth == 2 {
				r.state = stateInItem
			}
			r.depth++
		case '[':
			r.depth++
			if r.depth == 2 && !r.arrayOpen {
				r.arrayOpen = true
				r.state = stateAfterItem
			}
		case '}':
			r.depth--
			r.lastBrace = i
			addedBrace = true
			if r.arrayOpen && r.depth == 2 {
				r.state = stateAfterItem
			}
			if r.depth <= 0 {
				r.state = stateClosed
			}
		case ']':
			r.depth--
			r.lastBracket = i
			addedBracket = true
		}
	}
	return addedBracket, addedBrace
}

// repair builds the candidate snapshot text: the buffer truncated at the last
// structural close matching the delta (']' preferred when the delta carried
// one, '}' otherwise) plus the minimal closers. Pure with respect to scanner
// state; repeated calls on the same buffer yield the same candidate.
func (r *Reconstructor) repair(preferBracket bool) (string, bool) {
	if preferBracket {
		if r.lastBracket < 0 {
			return "", false
		}
		return string(r.buf[:r.lastBracket]) + "]}", true
	}
	if r.lastBrace < 0 {
		return "", false
	}
	return string(r.buf[:r.lastBrace]) + "}]}", true
}

// parseResults validates the candidate and extracts its result items. The
// candidate must be fully valid JSON with a results array; anything else is a
// skipped round.
func parseResults(raw string) ([]ResultItem, bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	res := gjson.Get(raw, "results")
	if !res.IsArray() {
		return nil, false
	}

	elements := res.Array()
	items := make([]ResultItem, 0, len(elements))
	for _, el := range elements {
		if !el.IsObject() {
			continue
		}
		items = append(items, ResultItem{
			EntityType: el.Get("entity_type").String(),
			Text:       el.Get("text").String(),
			Protected:  el.Get("protected").String(),
			Abstracted: el.Get("abstracted").String(),
		})
	}
	return items, true
}
