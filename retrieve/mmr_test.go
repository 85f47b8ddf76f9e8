package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/index"
)

func result(id string, sim float32, emb ...float32) index.Result {
	return index.Result{ID: id, Content: id, Similarity: sim, Embedding: emb}
}

func TestSelectMMRPureRelevanceKeepsDuplicates(t *testing.T) {
	// Two identical high-relevance candidates plus a diverse one.
	candidates := []index.Result{
		result("dup-a", 0.95, 1, 0),
		result("dup-b", 0.95, 1, 0),
		result("other", 0.50, 0, 1),
	}

	selected := SelectMMR(candidates, 2, 1.0)
	require.Len(t, selected, 2)
	assert.Equal(t, "dup-a", selected[0].ID)
	assert.Equal(t, "dup-b", selected[1].ID)
}

func TestSelectMMRPureDiversityAvoidsDuplicates(t *testing.T) {
	candidates := []index.Result{
		result("top", 0.95, 1, 0),
		result("top-copy", 0.94, 1, 0),
		result("diverse", 0.40, 0, 1),
	}

	selected := SelectMMR(candidates, 2, 0.0)
	require.Len(t, selected, 2)
	// First pick is still the most relevant (tie on score zero breaks
	// toward raw similarity); the second must be the diverse item, not
	// the near-duplicate.
	assert.Equal(t, "top", selected[0].ID)
	assert.Equal(t, "diverse", selected[1].ID)
}

func TestSelectMMRBalancedPrefersNovelContent(t *testing.T) {
	candidates := []index.Result{
		result("a", 0.90, 1, 0, 0),
		result("a-dup", 0.89, 1, 0, 0),
		result("b", 0.70, 0, 1, 0),
		result("c", 0.60, 0, 0, 1),
	}

	selected := SelectMMR(candidates, 3, 0.5)
	require.Len(t, selected, 3)
	assert.Equal(t, "a", selected[0].ID)
	assert.Equal(t, "b", selected[1].ID)
	assert.Equal(t, "c", selected[2].ID)
}

func TestSelectMMRTieBreaksOnRawSimilarity(t *testing.T) {
	// Orthogonal candidates with identical combined scores except for
	// raw similarity.
	candidates := []index.Result{
		result("low", 0.80, 0, 1),
		result("high", 0.81, 1, 0),
	}
	selected := SelectMMR(candidates, 1, 0.0)
	require.Len(t, selected, 1)
	assert.Equal(t, "high", selected[0].ID)
}

func TestSelectMMRNegativeSimilarityRewardsAntiSimilar(t *testing.T) {
	// z points opposite the first pick, so its diversity penalty is
	// negative and boosts its score past the orthogonal y despite the
	// lower raw similarity.
	candidates := []index.Result{
		result("x", 1.0, 1, 0),
		result("y", 0.5, 0, 1),
		result("z", 0.4, -1, 0),
	}

	selected := SelectMMR(candidates, 2, 0.5)
	require.Len(t, selected, 2)
	assert.Equal(t, "x", selected[0].ID)
	assert.Equal(t, "z", selected[1].ID)
}

func TestSelectMMRHandlesShortCandidateLists(t *testing.T) {
	assert.Empty(t, SelectMMR(nil, 5, 0.5))

	one := []index.Result{result("only", 0.9, 1)}
	selected := SelectMMR(one, 5, 0.5)
	require.Len(t, selected, 1)
	assert.Equal(t, "only", selected[0].ID)
}

// fakeIndex serves canned results for Retriever tests.
type fakeIndex struct {
	results []index.Result
	queried int
}

func (f *fakeIndex) Reset(ctx context.Context) error                   { return nil }
func (f *fakeIndex) Add(ctx context.Context, e []index.Entry) error    { return nil }
func (f *fakeIndex) Count() int                                        { return len(f.results) }
func (f *fakeIndex) Query(ctx context.Context, emb []float32, k int) ([]index.Result, error) {
	f.queried = k
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (staticEmbedder) Dimensions() int { return 2 }

func TestRetrieveEmptyIndex(t *testing.T) {
	r := New(&fakeIndex{}, staticEmbedder{}, Config{}, nil)

	_, err := r.Retrieve(context.Background(), "what is x")
	assert.ErrorIs(t, err, core.ErrIndexNotReady)
}

func TestRetrieveOverFetchesThenSelectsK(t *testing.T) {
	idx := &fakeIndex{}
	for i := 0; i < 30; i++ {
		idx.results = append(idx.results, result(string(rune('a'+i)), float32(30-i)/30, float32(i), 1))
	}
	r := New(idx, staticEmbedder{}, Config{K: 5, FetchK: 20, Lambda: 0.5}, nil)

	selected, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, 20, idx.queried, "retriever should over-fetch fetch_k candidates")
	assert.Len(t, selected, 5)
}
