// Package chromem backs the vector index with chromem-go, a pure Go
// embedded vector database. The collection persists on disk across
// restarts when a directory is configured.
package chromem

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/index"
)

const metaSource = "source"

// Config configures the chromem index.
type Config struct {
	// Dir is the persistence directory. Empty keeps the index in
	// memory only.
	Dir string

	// Collection names the chunk collection. Defaults to "documents".
	Collection string
}

// Store implements index.Index on top of chromem-go.
type Store struct {
	db     *chromem.DB
	name   string
	logger *zap.Logger

	mu  sync.RWMutex
	col *chromem.Collection
}

// New opens (or creates) the collection.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	var err error
	if cfg.Dir != "" {
		db, err = chromem.NewPersistentDB(cfg.Dir, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are provided by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", cfg.Collection, err)
	}

	return &Store{db: db, name: cfg.Collection, logger: logger, col: col}, nil
}

// Reset destroys and recreates the collection.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %q: %w", s.name, err)
	}
	col, err := s.db.CreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection %q: %w", s.name, err)
	}
	s.col = col
	s.logger.Info("collection reset", zap.String("collection", s.name))
	return nil
}

// Add writes a batch of embedded chunks.
func (s *Store) Add(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.RLock()
	col := s.col
	s.mu.RUnlock()

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Embedding: e.Embedding,
			Metadata:  map[string]string{metaSource: e.Source},
		})
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	s.logger.Debug("indexed batch", zap.Int("entries", len(entries)))
	return nil
}

// Query returns up to k results by similarity. chromem rejects result
// counts above the collection size, so k is clamped first.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]index.Result, error) {
	s.mu.RLock()
	col := s.col
	s.mu.RUnlock()

	if n := col.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	raw, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	results := make([]index.Result, 0, len(raw))
	for _, r := range raw {
		results = append(results, index.Result{
			ID:         r.ID,
			Source:     r.Metadata[metaSource],
			Content:    r.Content,
			Similarity: r.Similarity,
			Embedding:  r.Embedding,
		})
	}
	return results, nil
}

// Count reports the number of indexed entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.col.Count()
}
