package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-web-qa/internal/domain"
)

type stubEmbedder struct{}

func (stubEmbedder) Name() string   { return "stub" }
func (stubEmbedder) Dimension() int { return 2 }
func (stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1, 0}, nil
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{DocumentID: "doc", ChunkID: "doc:0", Index: 0, Text: "east", Metadata: map[string]any{"source": "http://example.com"}},
		{DocumentID: "doc", ChunkID: "doc:1", Index: 1, Text: "north", Metadata: map[string]any{"source": "http://example.com"}},
		{DocumentID: "doc", ChunkID: "doc:2", Index: 2, Text: "north-east", Metadata: map[string]any{"source": "http://example.com"}},
	}
}

func TestStorage_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(Config{}, stubEmbedder{})
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, testChunks(), [][]float64{{1, 0}, {0, 1}, {1, 1}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := s.Search(ctx, []float64{0, 2}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	top := results[0]
	assert.Equal(t, "doc:1", top.Chunk.ChunkID)
	assert.Equal(t, "doc", top.Chunk.DocumentID)
	assert.Equal(t, 1, top.Chunk.Index)
	assert.Equal(t, "north", top.Chunk.Text)
	assert.Equal(t, "http://example.com", top.Chunk.Source())
	assert.InDelta(t, 1.0, top.Score, 1e-5)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
}

func TestStorage_ZeroVectors(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(Config{}, stubEmbedder{})
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, testChunks()[:2], [][]float64{{0, 0}, {1, 0}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Search(ctx, []float64{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStorage_ClearDropsCollection(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(Config{Collection: "pages"}, stubEmbedder{})
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, testChunks(), [][]float64{{1, 0}, {0, 1}, {1, 1}}))

	require.NoError(t, s.Clear(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	results, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Error(t, s.Upsert(ctx, testChunks(), [][]float64{{1, 0}, {0, 1}, {1, 1}}))

	require.NoError(t, s.Init(ctx, 2))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorage_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStorage(Config{PersistPath: dir}, stubEmbedder{})
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, testChunks(), [][]float64{{1, 0}, {0, 1}, {1, 1}}))

	reopened, err := NewStorage(Config{PersistPath: dir}, stubEmbedder{})
	require.NoError(t, err)
	require.NoError(t, reopened.Init(ctx, 2))
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
