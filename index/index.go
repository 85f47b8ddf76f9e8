// Package index defines the vector-index capability the pipeline
// writes to and the retriever queries. The index owns chunk embeddings;
// everything above it treats vectors as opaque.
package index

import "context"

// Entry is an embedded chunk ready for indexing.
type Entry struct {
	ID        string
	Source    string
	Content   string
	Embedding []float32
}

// Result is a retrieved entry with its raw similarity to the query.
type Result struct {
	ID         string
	Source     string
	Content    string
	Similarity float32
	Embedding  []float32
}

// Index is the vector storage backend.
// Implementations: chromem (embedded, persistent), fakes in tests.
type Index interface {
	// Reset destroys and recreates the collection. Ingestion calls this
	// unconditionally: the previous corpus is discarded.
	Reset(ctx context.Context) error

	// Add writes a batch of embedded chunks.
	Add(ctx context.Context, entries []Entry) error

	// Query returns up to k entries by descending similarity to the
	// query embedding. Fewer than k are returned when the collection is
	// smaller.
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)

	// Count reports the number of indexed entries. Zero means no
	// ingestion has populated the index yet.
	Count() int
}
