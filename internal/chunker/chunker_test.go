package chunker

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-web-qa/internal/domain"
)

func testDocument(content string) domain.Document {
	return domain.Document{
		ID:      "doc-1",
		Source:  "http://example.com/page",
		Content: content,
		Metadata: map[string]any{
			"source": "http://example.com/page",
			"title":  "Example",
			"tags":   []string{"a", "b"},
		},
	}
}

func TestRecursiveChunker_RespectsChunkSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("gopher ")
		if i%50 == 49 {
			sb.WriteString("\n\n")
		}
	}
	c := NewRecursiveChunker(1024, 20)

	chunks, err := c.Chunk(testDocument(sb.String()))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 1024)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "doc-1", ch.DocumentID)
		assert.Equal(t, "doc-1:"+strconv.Itoa(i), ch.ChunkID)
		assert.NotEmpty(t, strings.TrimSpace(ch.Text))
	}
}

func TestRecursiveChunker_ShortDocumentIsOneChunk(t *testing.T) {
	c := NewRecursiveChunker(1024, 20)

	chunks, err := c.Chunk(testDocument("Go is an open source programming language."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Go is an open source programming language.", chunks[0].Text)
	assert.Equal(t, "http://example.com/page", chunks[0].Source())
}

func TestRecursiveChunker_EmptyDocument(t *testing.T) {
	c := NewRecursiveChunker(1024, 20)

	chunks, err := c.Chunk(testDocument("  \n\n "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunks_MetadataIsFilteredAndCopied(t *testing.T) {
	c := NewRecursiveChunker(40, 0)

	chunks, err := c.Chunk(testDocument("first paragraph of text\n\nsecond paragraph of text"))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Example", chunks[0].Metadata["title"])
	assert.NotContains(t, chunks[0].Metadata, "tags")

	chunks[0].Metadata["title"] = "changed"
	assert.Equal(t, "Example", chunks[1].Metadata["title"])
}

func TestSentenceChunker_Overlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)

	chunks, err := c.Chunk(testDocument("One. Two! Three? Four."))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "One. Two!", chunks[0].Text)
	assert.Equal(t, "Two! Three?", chunks[1].Text)
	assert.Equal(t, "Three? Four.", chunks[2].Text)
}

func TestSentenceChunker_NoPunctuation(t *testing.T) {
	c := NewSentenceChunker(5, 1)

	chunks, err := c.Chunk(testDocument("  just a fragment  "))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a fragment", chunks[0].Text)
}

func TestFilterComplexMetadata(t *testing.T) {
	in := map[string]any{
		"s":     "x",
		"b":     true,
		"i":     3,
		"f":     0.5,
		"slice": []int{1},
		"map":   map[string]any{"k": "v"},
		"nil":   nil,
	}

	out := FilterComplexMetadata(in)

	assert.Equal(t, map[string]any{"s": "x", "b": true, "i": 3, "f": 0.5}, out)
}
