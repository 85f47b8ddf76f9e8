// Package retrieve wraps the vector index with a diversity-aware
// selection policy: over-fetch by raw similarity, then pick the final
// set by maximal marginal relevance.
package retrieve

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/embed"
	"github.com/siftlabs/ragcore/index"
)

// Config tunes the retrieval policy.
type Config struct {
	// K is the number of chunks handed to the language model.
	K int

	// FetchK is the over-fetch size MMR considers before reranking.
	FetchK int

	// Lambda balances relevance against diversity in [0,1]: 1 is pure
	// relevance (near-duplicates allowed), 0 is pure diversity.
	Lambda float64
}

// DefaultConfig returns the production retrieval settings.
func DefaultConfig() Config {
	return Config{K: 5, FetchK: 20, Lambda: 0.5}
}

// Retriever selects context chunks for a query.
type Retriever struct {
	idx      index.Index
	embedder embed.Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a Retriever. Zero config fields fall back to defaults.
func New(idx index.Index, embedder embed.Embedder, cfg Config, logger *zap.Logger) *Retriever {
	def := DefaultConfig()
	if cfg.K <= 0 {
		cfg.K = def.K
	}
	if cfg.FetchK <= 0 {
		cfg.FetchK = def.FetchK
	}
	if cfg.Lambda < 0 || cfg.Lambda > 1 {
		cfg.Lambda = def.Lambda
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{idx: idx, embedder: embedder, cfg: cfg, logger: logger}
}

// Retrieve returns up to K chunks for the query, reranked by MMR.
// Returns core.ErrIndexNotReady when no ingestion has populated the
// index.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]index.Result, error) {
	if r.idx.Count() == 0 {
		return nil, core.ErrIndexNotReady
	}

	queryEmb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &core.ExternalError{Capability: "embedder", Err: err}
	}

	candidates, err := r.idx.Query(ctx, queryEmb, r.cfg.FetchK)
	if err != nil {
		return nil, err
	}

	selected := SelectMMR(candidates, r.cfg.K, r.cfg.Lambda)
	r.logger.Debug("retrieved context",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.Float64("lambda", r.cfg.Lambda))
	return selected, nil
}

const scoreEpsilon = 1e-9

// SelectMMR greedily picks k results maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarity(item, selected)
//
// where relevance is the candidate's raw similarity to the query.
// Selection is order-dependent: earlier picks are fixed, only the next
// pick is optimized. Equal combined scores break toward the higher raw
// similarity, which keeps the ordering deterministic.
func SelectMMR(candidates []index.Result, k int, lambda float64) []index.Result {
	if k >= len(candidates) && lambda >= 1 {
		return candidates
	}

	remaining := make([]index.Result, len(candidates))
	copy(remaining, candidates)

	var selected []index.Result
	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)
		bestRel := math.Inf(-1)

		for i, cand := range remaining {
			rel := float64(cand.Similarity)
			score := lambda * rel
			if len(selected) > 0 {
				// True max over selected: anti-similar picks yield a
				// negative penalty, which rewards the candidate.
				maxSim := math.Inf(-1)
				for _, s := range selected {
					if sim := float64(cosine(cand.Embedding, s.Embedding)); sim > maxSim {
						maxSim = sim
					}
				}
				score -= (1 - lambda) * maxSim
			}

			better := score > bestScore+scoreEpsilon
			tied := math.Abs(score-bestScore) <= scoreEpsilon && rel > bestRel
			if better || tied {
				bestIdx, bestScore, bestRel = i, score, rel
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// cosine computes cosine similarity between two vectors. Mismatched or
// empty vectors score zero.
func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
