// Package chromem stores chunk vectors in an embedded chromem-go database,
// optionally persisted to disk.
package chromem

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/vectorstore"
)

const (
	metaDocumentID = "document_id"
	metaIndex      = "index"
)

// Config configures the chromem-go backed store.
type Config struct {
	Collection  string
	PersistPath string
	Compress    bool
}

// Storage keeps one chromem collection holding every indexed chunk.
type Storage struct {
	mu        sync.RWMutex
	db        *chromem.DB
	name      string
	embed     chromem.EmbeddingFunc
	coll      *chromem.Collection
	dimension int
}

// NewStorage opens the database. An empty PersistPath keeps it in memory.
// The embedder only serves text queries issued directly against the
// collection; Upsert and Search always pass precomputed vectors.
func NewStorage(cfg Config, embedder domain.Embedder) (*Storage, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}
	if cfg.Collection == "" {
		cfg.Collection = "web"
	}
	return &Storage{
		db:    db,
		name:  cfg.Collection,
		embed: EmbeddingFunc(embedder),
	}, nil
}

// EmbeddingFunc adapts an Embedder to chromem's float32 embedding function.
func EmbeddingFunc(e domain.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return vectorstore.ToFloat32(v), nil
	}
}

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, err := s.db.GetOrCreateCollection(s.name, nil, s.embed)
	if err != nil {
		return fmt.Errorf("open collection %s: %w", s.name, err)
	}
	s.coll = coll
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coll == nil {
		return fmt.Errorf("collection %s not initialised", s.name)
	}
	if err := vectorstore.ValidateBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for i, ch := range chunks {
		if vectorstore.IsZero(vectors[i]) {
			// chromem normalises vectors; a zero vector would poison every query
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        ch.ChunkID,
			Metadata:  toMetadata(ch),
			Embedding: vectorstore.ToFloat32(vectors[i]),
			Content:   ch.Text,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := s.coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coll == nil || vectorstore.IsZero(vector) {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	n := s.coll.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}
	res, err := s.coll.QueryEmbedding(ctx, vectorstore.ToFloat32(vector), topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	out := make([]domain.SearchResult, 0, len(res))
	for _, r := range res {
		out = append(out, domain.SearchResult{
			Chunk: fromResult(r),
			Score: float64(r.Similarity),
		})
	}
	return out, nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coll == nil {
		return 0, nil
	}
	return s.coll.Count(), nil
}

// Clear deletes the collection. Init must be called again before Upsert.
func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.name, err)
	}
	s.coll = nil
	return nil
}

func toMetadata(ch domain.Chunk) map[string]string {
	md := make(map[string]string, len(ch.Metadata)+2)
	for k, v := range ch.Metadata {
		md[k] = fmt.Sprint(v)
	}
	md[metaDocumentID] = ch.DocumentID
	md[metaIndex] = strconv.Itoa(ch.Index)
	return md
}

func fromResult(r chromem.Result) domain.Chunk {
	ch := domain.Chunk{
		ChunkID:  r.ID,
		Text:     r.Content,
		Metadata: make(map[string]any, len(r.Metadata)),
	}
	for k, v := range r.Metadata {
		switch k {
		case metaDocumentID:
			ch.DocumentID = v
		case metaIndex:
			ch.Index, _ = strconv.Atoi(v)
		default:
			ch.Metadata[k] = v
		}
	}
	return ch
}
