//go:build !onnx

// Stub used when the binary is built without the onnx tag. Wiring code
// can reference the package unconditionally; construction reports that
// local embedding support is absent.
package onnx

import (
	"context"
	"fmt"
)

// Config configures the ONNX embedder.
type Config struct {
	ModelPath     string
	TokenizerPath string
	Dimensions    int
	LibraryPath   string
}

// Embedder is unavailable without the onnx build tag.
type Embedder struct{}

// New fails: the binary was built without ONNX support.
func New(cfg Config) (*Embedder, error) {
	return nil, fmt.Errorf("onnx embedder unavailable: rebuild with -tags onnx")
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("onnx embedder unavailable: rebuild with -tags onnx")
}

func (e *Embedder) Dimensions() int { return 0 }

func (e *Embedder) Close() error { return nil }
