package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rag-web-qa/internal/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, Cosine([]float64{1}, []float64{1, 1}))
}

func TestTopK(t *testing.T) {
	in := []domain.SearchResult{
		{Chunk: domain.Chunk{ChunkID: "a"}, Score: 0.2},
		{Chunk: domain.Chunk{ChunkID: "b"}, Score: 0.9},
		{Chunk: domain.Chunk{ChunkID: "c"}, Score: 0.5},
	}

	out := TopK(in, 2)

	assert.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Chunk.ChunkID)
	assert.Equal(t, "c", out[1].Chunk.ChunkID)
}

func TestValidateBatch(t *testing.T) {
	chunks := []domain.Chunk{{ChunkID: "a"}}

	assert.ErrorIs(t, ValidateBatch(chunks, nil, 2), ErrLengthMismatch)
	assert.ErrorIs(t, ValidateBatch(chunks, [][]float64{{1}}, 2), ErrDimensionMismatch)
	assert.NoError(t, ValidateBatch(chunks, [][]float64{{1, 2}}, 2))
	assert.NoError(t, ValidateBatch(chunks, [][]float64{{1}}, 0))
}

func TestEncodeDecodeVector(t *testing.T) {
	v := []float64{0.5, -1.25, 3}

	assert.Equal(t, v, DecodeVector(EncodeVector(v)))
	assert.Len(t, EncodeVector(v), 12)
}
