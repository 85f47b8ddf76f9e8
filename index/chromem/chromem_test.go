package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/ragcore/embed/mock"
	"github.com/siftlabs/ragcore/index"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Collection: "test"}, nil)
	require.NoError(t, err)
	return s
}

func embedText(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := mock.New(64).Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}

func TestAddAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	entries := []index.Entry{
		{ID: "1", Source: "https://a", Content: "mortgage rates climbed", Embedding: embedText(t, "mortgage rates climbed")},
		{ID: "2", Source: "https://b", Content: "weather was sunny", Embedding: embedText(t, "weather was sunny")},
	}
	require.NoError(t, s.Add(ctx, entries))
	assert.Equal(t, 2, s.Count())

	results, err := s.Query(ctx, embedText(t, "mortgage rates climbed"), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Exact text match must rank first with similarity ~1.
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "https://a", results[0].Source)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-3)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestQueryClampsToCollectionSize(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Add(ctx, []index.Entry{
		{ID: "only", Content: "single entry", Embedding: embedText(t, "single entry")},
	}))

	results, err := s.Query(ctx, embedText(t, "anything"), 20)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestQueryEmptyCollection(t *testing.T) {
	s := newStore(t)

	results, err := s.Query(context.Background(), embedText(t, "anything"), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, s.Count())
}

func TestResetDiscardsPreviousCorpus(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Add(ctx, []index.Entry{
		{ID: "1", Content: "old corpus", Embedding: embedText(t, "old corpus")},
	}))
	require.Equal(t, 1, s.Count())

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, 0, s.Count())

	// Index is writable again after the reset.
	require.NoError(t, s.Add(ctx, []index.Entry{
		{ID: "2", Content: "new corpus", Embedding: embedText(t, "new corpus")},
	}))
	assert.Equal(t, 1, s.Count())
}
