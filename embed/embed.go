// Package embed defines the text-embedding capability consumed by the
// ingestion pipeline and the retriever. The embedding model itself is
// an external collaborator; implementations live in subpackages
// (onnx for a local model, mock for tests).
package embed

import "context"

// Embedder converts text to vector embeddings.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
