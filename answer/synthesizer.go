// Package answer turns retrieved context chunks and a question into a
// final answer with source attribution.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/index"
	"github.com/siftlabs/ragcore/llm"
)

// ContextRetriever supplies context chunks for a query. Implemented by
// retrieve.Retriever.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) ([]index.Result, error)
}

// Result is a synthesized answer with the provenance of the chunks
// that contributed to it.
type Result struct {
	Answer  string `json:"answer"`
	Sources string `json:"sources"`
}

const qaSystem = `You are a research assistant. Answer the question using ONLY the extracted document parts provided. Each part is labeled with its Source.

If the parts do not contain the answer, say you don't know; never invent facts.

After your answer, finish with a final line of the form:
SOURCES: <comma-separated list of the Source values you actually used>`

// Synthesizer answers questions over the ingested corpus.
type Synthesizer struct {
	retriever ContextRetriever
	model     llm.ChatModel
	logger    *zap.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(retriever ContextRetriever, model llm.ChatModel, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{retriever: retriever, model: model, logger: logger}
}

// Answer retrieves context for the question, invokes the model, and
// splits the reply into answer text and source attribution. Returns
// core.ErrIndexNotReady when no ingestion has occurred: that is a
// precondition violation, not an excuse to fabricate an answer.
func (s *Synthesizer) Answer(ctx context.Context, question string) (Result, error) {
	chunks, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return Result{}, err
	}

	reply, err := s.model.Complete(ctx, qaSystem, []core.Message{
		{Role: core.RoleUser, Content: buildPrompt(chunks, question)},
	})
	if err != nil {
		return Result{}, err
	}

	answer, sources := splitSources(reply)
	if sources == "" {
		// Model omitted the trailer; attribute the retrieved chunks.
		sources = joinSources(chunks)
	}
	s.logger.Info("answered question",
		zap.Int("context_chunks", len(chunks)),
		zap.String("sources", sources))
	return Result{Answer: answer, Sources: sources}, nil
}

func buildPrompt(chunks []index.Result, question string) string {
	var b strings.Builder
	b.WriteString("Extracted parts:\n\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "Content: %s\nSource: %s\n\n", c.Content, c.Source)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// splitSources separates the free-text answer from the SOURCES trailer.
func splitSources(reply string) (answer, sources string) {
	for _, marker := range []string{"SOURCES:", "Sources:", "SOURCE:"} {
		if i := strings.LastIndex(reply, marker); i >= 0 {
			return strings.TrimSpace(reply[:i]), strings.TrimSpace(reply[i+len(marker):])
		}
	}
	return strings.TrimSpace(reply), ""
}

// joinSources returns the unique chunk sources in retrieval order.
func joinSources(chunks []index.Result) string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range chunks {
		if c.Source == "" || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		out = append(out, c.Source)
	}
	return strings.Join(out, ", ")
}
