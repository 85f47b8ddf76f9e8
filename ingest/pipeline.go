// Package ingest orchestrates the fetch → chunk → embed → index-write
// pipeline. A run rebuilds the collection from scratch: the previous
// corpus is always discarded first. Progress is reported on an event
// channel so callers can stream it, poll it through the job registry,
// or simply drain it to completion.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/chunk"
	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/embed"
	"github.com/siftlabs/ragcore/index"
)

// Pipeline ingests source documents into the vector index.
type Pipeline struct {
	fetcher  Fetcher
	splitter *chunk.Splitter
	embedder embed.Embedder
	idx      index.Index
	logger   *zap.Logger
}

// NewPipeline wires the pipeline. All dependencies are injected; the
// pipeline holds no ambient state.
func NewPipeline(fetcher Fetcher, splitter *chunk.Splitter, embedder embed.Embedder, idx index.Index, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:  fetcher,
		splitter: splitter,
		embedder: embedder,
		idx:      idx,
		logger:   logger,
	}
}

// Run starts an ingestion run and returns its event channel. The
// channel closes after the terminal event. Steps execute strictly in
// order; each must fully succeed before the next begins.
func (p *Pipeline) Run(ctx context.Context, sources []string) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		p.run(ctx, sources, events)
	}()
	return events
}

func (p *Pipeline) run(ctx context.Context, sources []string, events chan<- Event) {
	emit := func(stage Stage, format string, args ...any) {
		events <- Event{Stage: stage, Message: fmt.Sprintf(format, args...), Time: time.Now()}
	}
	fail := func(err error) {
		p.logger.Error("ingestion failed", zap.Error(err))
		events <- Event{Stage: StageFailed, Message: err.Error(), Time: time.Now(), Err: err}
	}

	emit(StageStarted, "Starting ingestion of %d sources...", len(sources))

	// The previous corpus is discarded unconditionally.
	emit(StageReset, "Resetting collection...")
	if err := p.idx.Reset(ctx); err != nil {
		fail(fmt.Errorf("reset collection: %w", err))
		return
	}

	emit(StageFetch, "Loading data...")
	var docs []core.Document
	for _, src := range sources {
		doc, err := p.fetcher.Fetch(ctx, src)
		if err != nil {
			// One bad source never fails the batch.
			p.logger.Warn("source fetch failed", zap.String("source", src), zap.Error(err))
			emit(StageFetch, "Skipping %s: %v", src, err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(sources) > 0 && len(docs) == 0 {
		fail(fmt.Errorf("all %d sources failed to fetch", len(sources)))
		return
	}

	emit(StageChunk, "Splitting text into chunks...")
	chunks := p.splitter.Split(docs)

	emit(StageIndex, "Adding %d chunks to vector index...", len(chunks))
	entries := make([]index.Entry, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		vec, err := p.embedder.Embed(ctx, c.Content)
		if err != nil {
			fail(&core.ExternalError{Capability: "embedder", Err: err})
			return
		}
		entries = append(entries, index.Entry{
			ID:        uuid.New().String(),
			Source:    c.Source,
			Content:   c.Content,
			Embedding: vec,
		})
	}
	if len(entries) > 0 {
		if err := p.idx.Add(ctx, entries); err != nil {
			fail(fmt.Errorf("index batch write: %w", err))
			return
		}
	}

	p.logger.Info("ingestion complete",
		zap.Int("sources", len(sources)),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))
	emit(StageDone, "Ingested %d chunks from %d documents", len(chunks), len(docs))
}
