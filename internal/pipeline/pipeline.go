// Package pipeline drives one request end to end: chunk the input, open one
// model invocation per chunk, reconstruct snapshots from each delta stream
// and emit the merged result set after every successfully parsed delta.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rescriber/pii-gateway/internal/chunker"
	"github.com/rescriber/pii-gateway/internal/config"
	"github.com/rescriber/pii-gateway/internal/engine"
	"github.com/rescriber/pii-gateway/internal/logger"
	"github.com/rescriber/pii-gateway/internal/stream"
	"go.uber.org/zap"
)

// Spec selects the per-endpoint policy: which system prompt drives the model
// and whether the input is split into chunks first.
type Spec struct {
	SystemPrompt string
	Chunking     bool
}

// EmitFunc receives each merged snapshot as soon as it becomes parseable. A
// non-nil return aborts the request (typically: the client went away).
type EmitFunc func(stream.Snapshot) error

// Pipeline orchestrates chunker, engine, reconstructor and accumulator for
// one request at a time. It holds no per-request state; everything lives on
// the stack of Run.
type Pipeline struct {
	engine engine.Engine
	cfg    *config.Config
	logger *logger.Logger
}

// New creates a pipeline bound to an inference engine
func New(eng engine.Engine, cfg *config.Config, log *logger.Logger) *Pipeline {
	return &Pipeline{
		engine: eng,
		cfg:    cfg,
		logger: log,
	}
}

// Run processes text through the pipeline. Chunks are submitted strictly
// sequentially: chunk n+1 is not opened until chunk n's stream reaches done,
// which keeps the accumulator single-writer. An engine failure mid-request
// aborts the stream: no further snapshots, the caller closes the response.
func (p *Pipeline) Run(ctx context.Context, text string, spec Spec, emit EmitFunc) error {
	var chunks []string
	if spec.Chunking {
		chunks = chunker.Split(text, p.cfg.Chunking.Size)
	} else {
		chunks = []string{text}
	}

	acc := stream.NewAccumulator()
	start := time.Now()

	for i, chunk := range chunks {
		if err := p.runChunk(ctx, chunk, i, spec, acc, emit, start); err != nil {
			return err
		}
	}

	p.logger.Info("request pipeline complete",
		zap.Int("chunks", len(chunks)),
		zap.Int("results", len(acc.Results())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// runChunk drives a single invocation's delta stream through a fresh
// reconstructor and merges its finalized contribution.
func (p *Pipeline) runChunk(ctx context.Context, chunk string, index int, spec Spec, acc *stream.Accumulator, emit EmitFunc, start time.Time) error {
	deltas, err := p.engine.Chat(ctx, spec.SystemPrompt, chunk)
	if err != nil {
		return fmt.Errorf("engine invocation for chunk %d: %w", index, err)
	}

	rec := stream.NewReconstructor(p.cfg.Stream.MaxBufferBytes, p.logger)
	for delta := range deltas {
		switch {
		case delta.Err != nil:
			return fmt.Errorf("engine stream for chunk %d: %w", index, delta.Err)
		case delta.Done:
			acc.Merge(rec.Finalize())
			return nil
		}

		items, ok := rec.Feed(delta.Content)
		if !ok {
			continue
		}
		snap := stream.Snapshot{Results: acc.Snapshot(items)}
		p.logger.Debug("snapshot emitted",
			zap.Int("chunk", index),
			zap.Int("results", len(snap.Results)),
			zap.Duration("elapsed", time.Since(start)),
		)
		if err := emit(snap); err != nil {
			return fmt.Errorf("emit snapshot: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	// Stream closed without a done delta; treat like done so the chunk's
	// best-effort results still count.
	acc.Merge(rec.Finalize())
	return ctx.Err()
}
