// Package chunker splits loaded documents into overlapping chunks.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"rag-web-qa/internal/domain"
)

// RecursiveChunker splits on paragraph, line, then word boundaries until every
// piece fits the chunk size, keeping a character overlap between neighbours.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewRecursiveChunker creates a chunker producing chunks of at most chunkSize
// characters overlapping by chunkOverlap characters.
func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(document.Content)
	if err != nil {
		return nil, fmt.Errorf("split document %s: %w", document.ID, err)
	}
	texts := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			texts = append(texts, p)
		}
	}
	return buildChunks(document, texts), nil
}

func buildChunks(document domain.Document, texts []string) []domain.Chunk {
	if len(texts) == 0 {
		return nil
	}
	metadata := FilterComplexMetadata(document.Metadata)
	chunks := make([]domain.Chunk, 0, len(texts))
	for idx, text := range texts {
		md := make(map[string]any, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       text,
			Index:      idx,
			Metadata:   md,
		})
	}
	return chunks
}
