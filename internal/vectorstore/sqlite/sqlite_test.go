package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/vectorstore"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background(), 2))
	return s
}

func TestStorage_UpsertSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	chunks := []domain.Chunk{
		{DocumentID: "doc", ChunkID: "doc:0", Index: 0, Text: "east", Metadata: map[string]any{"source": "http://example.com", "title": "Compass"}},
		{DocumentID: "doc", ChunkID: "doc:1", Index: 1, Text: "north", Metadata: map[string]any{"source": "http://example.com"}},
	}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float64{{1, 0}, {0, 1}}))

	results, err := s.Search(ctx, []float64{0.1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc:1", results[0].Chunk.ChunkID)
	assert.Equal(t, 1, results[0].Chunk.Index)
	assert.Equal(t, "http://example.com", results[0].Chunk.Source())
	assert.Greater(t, results[0].Score, 0.99)
}

func TestStorage_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a", Text: "old"}}, [][]float64{{1, 0}}))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a", Text: "new"}}, [][]float64{{0, 1}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Search(ctx, []float64{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Chunk.Text)
}

func TestStorage_Clear(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a", Text: "x"}, {ChunkID: "b", Text: "y"}}, [][]float64{{1, 0}, {0, 1}}))

	require.NoError(t, s.Clear(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorage_SearchReportsCorruptMetadata(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	require.NoError(t, s.db.Create(&ChunkRecord{
		ChunkID:   "broken",
		Text:      "x",
		Metadata:  "{not json",
		Embedding: vectorstore.EncodeVector([]float64{1, 0}),
	}).Error)

	_, err := s.Search(ctx, []float64{1, 0}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode metadata for broken")
}

func TestStorage_DimensionMismatch(t *testing.T) {
	s := openTestStorage(t)

	err := s.Upsert(context.Background(), []domain.Chunk{{ChunkID: "a"}}, [][]float64{{1, 2, 3}})
	assert.Error(t, err)
}

func TestStorage_UninitialisedIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
