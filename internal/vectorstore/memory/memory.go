package memory

import (
	"context"
	"sync"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	index     map[string]int
	vectors   [][]float64
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{index: make(map[string]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != dimension {
		s.reset()
	}
	s.dimension = dimension
	return nil
}

// Upsert adds chunks, replacing any stored chunk with the same ChunkID.
func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := vectorstore.ValidateBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	for i, ch := range chunks {
		if j, ok := s.index[ch.ChunkID]; ok {
			s.chunks[j] = ch
			s.vectors[j] = vectors[i]
			continue
		}
		s.index[ch.ChunkID] = len(s.chunks)
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, 0, len(s.vectors))
	for i := range s.vectors {
		results = append(results, domain.SearchResult{
			Chunk: s.chunks[i],
			Score: vectorstore.Cosine(s.vectors[i], vector),
		})
	}
	return vectorstore.TopK(results, topK), nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *Storage) reset() {
	s.index = make(map[string]int)
	s.vectors = nil
	s.chunks = nil
}
