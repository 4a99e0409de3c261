// Package service implements ingestion of a web page into a vector index and
// question answering over it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rag-web-qa/internal/chain"
	"rag-web-qa/internal/chunker"
	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/logging"
	"rag-web-qa/internal/retriever"
	"rag-web-qa/internal/vectorstore"
)

// NoDocumentsMessage is returned by Ask when nothing has been ingested.
const NoDocumentsMessage = "Please, add a URL first."

var ErrNoContent = errors.New("page has no indexable text")

// Metrics receives ingest and ask observations. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ObserveIngest(d time.Duration, chunks int, err error)
	ObserveAsk(d time.Duration, sources int, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveIngest(time.Duration, int, error) {}
func (noopMetrics) ObserveAsk(time.Duration, int, error)    {}

// Options holds the tunables of a RAGServiceImpl.
type Options struct {
	TopK                int
	ScoreThreshold      float64
	PromptTemplate      string
	SummaryMaxSentences int
	EmbedConcurrency    int
	Logger              logging.Logger
	Metrics             Metrics
}

// DefaultOptions returns the retrieval policy used when nothing is configured:
// top 3 chunks with a similarity of at least 0.5.
func DefaultOptions() Options {
	return Options{
		TopK:                retriever.DefaultTopK,
		ScoreThreshold:      retriever.DefaultScoreThreshold,
		SummaryMaxSentences: 3,
		EmbedConcurrency:    4,
	}
}

// IngestResult describes the page that was indexed.
type IngestResult struct {
	DocumentID string
	Source     string
	Title      string
	Chunks     int
	Summary    string
}

type RAGServiceImpl struct {
	loader     domain.Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	llm        domain.ChatModel
	summarizer domain.Summarizer
	opts       Options
	logger     logging.Logger
	metrics    Metrics

	// ingestMu serialises ingests; indexMu guards the store contents against
	// an index swap; mu guards the fields below.
	ingestMu sync.Mutex
	indexMu  sync.RWMutex
	mu       sync.RWMutex
	chain    *chain.RetrievalQA // owns the retriever
	last     *IngestResult
}

func NewRAGService(
	loader domain.Loader,
	chunker domain.Chunker,
	embedder domain.Embedder,
	store domain.VectorStore,
	llm domain.ChatModel,
	summarizer domain.Summarizer,
	opts Options,
) *RAGServiceImpl {
	if opts.TopK <= 0 {
		opts.TopK = retriever.DefaultTopK
	}
	if opts.SummaryMaxSentences <= 0 {
		opts.SummaryMaxSentences = 3
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 4
	}
	s := &RAGServiceImpl{
		loader:     loader,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		llm:        llm,
		summarizer: summarizer,
		opts:       opts,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.logger == nil {
		s.logger = logging.NewNoop()
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	return s
}

// Ingest loads the page at url and replaces the index with its chunks.
// Loading and embedding run without blocking readers; the previous index keeps
// answering until the new one is swapped in. Failures before the swap leave it
// queryable, failures during the swap leave the service with no index.
func (s *RAGServiceImpl) Ingest(ctx context.Context, url string) (res IngestResult, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveIngest(time.Since(start), res.Chunks, err) }()

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	docs, err := s.loader.Load(ctx, url)
	if err != nil {
		return IngestResult{}, err
	}
	var (
		chunks []domain.Chunk
		texts  []string
	)
	for _, d := range docs {
		d.Metadata = chunker.FilterComplexMetadata(d.Metadata)
		cs, err := s.chunker.Chunk(d)
		if err != nil {
			return IngestResult{}, err
		}
		for _, ch := range cs {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
	}
	if len(chunks) == 0 {
		return IngestResult{}, fmt.Errorf("%w: %s", ErrNoContent, url)
	}
	s.logger.Debug("page chunked", logging.Fields{"url": url, "chunks": len(chunks)})

	emb, err := s.fit(texts)
	if err != nil {
		return IngestResult{}, err
	}
	vectors, err := s.embedAll(ctx, emb, chunks)
	if err != nil {
		return IngestResult{}, err
	}
	dim, err := dimension(emb, vectors)
	if err != nil {
		return IngestResult{}, err
	}

	ret := retriever.NewScoreThreshold(emb, s.store,
		retriever.WithTopK(s.opts.TopK),
		retriever.WithScoreThreshold(s.opts.ScoreThreshold),
		retriever.WithLogger(s.logger.WithPrefix("retriever")),
	)
	qa, err := chain.NewRetrievalQA(s.llm, ret, s.opts.PromptTemplate)
	if err != nil {
		return IngestResult{}, err
	}

	res = IngestResult{
		DocumentID: docs[0].ID,
		Source:     docs[0].Source,
		Title:      docs[0].Title(),
		Chunks:     len(chunks),
	}
	if s.summarizer != nil {
		contents := make([]string, len(docs))
		for i, d := range docs {
			contents[i] = d.Content
		}
		summary, serr := s.summarizer.Summarize(strings.Join(contents, "\n"), s.opts.SummaryMaxSentences)
		if serr != nil {
			s.logger.Warn("summarize failed", logging.Fields{"url": url, "error": serr})
		}
		res.Summary = summary
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return IngestResult{}, fmt.Errorf("clear index: %w", err)
	}
	s.setState(nil, nil)
	if err := s.store.Init(ctx, dim); err != nil {
		return IngestResult{}, fmt.Errorf("init index: %w", err)
	}
	if err := s.store.Upsert(ctx, chunks, vectors); err != nil {
		return IngestResult{}, fmt.Errorf("index chunks: %w", err)
	}
	last := res
	s.setState(qa, &last)

	s.logger.Info("ingested page", logging.Fields{
		"url":       url,
		"chunks":    len(chunks),
		"dimension": dim,
		"embedder":  emb.Name(),
		"duration":  time.Since(start).Round(time.Millisecond),
	})
	return res, nil
}

// fit returns the embedder used to index and query one page. Corpus-fitted
// embedders are fitted into a new instance so the live index keeps its own.
func (s *RAGServiceImpl) fit(texts []string) (domain.Embedder, error) {
	f, ok := s.embedder.(domain.Fitter)
	if !ok {
		return s.embedder, nil
	}
	emb, err := f.Fit(texts)
	if err != nil {
		return nil, fmt.Errorf("fit embedder: %w", err)
	}
	return emb, nil
}

func dimension(emb domain.Embedder, vectors [][]float64) (int, error) {
	got := len(vectors[0])
	want := emb.Dimension()
	if want == 0 {
		return got, nil
	}
	if want != got {
		return 0, fmt.Errorf("%w: embedder reports %d, vectors have %d",
			vectorstore.ErrDimensionMismatch, want, got)
	}
	return want, nil
}

func (s *RAGServiceImpl) embedAll(ctx context.Context, emb domain.Embedder, chunks []domain.Chunk) ([][]float64, error) {
	vectors := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EmbedConcurrency)
	for i := range chunks {
		g.Go(func() error {
			v, err := emb.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Ask answers query from the ingested page.
func (s *RAGServiceImpl) Ask(ctx context.Context, query string) (string, error) {
	ans, err := s.AskWithSources(ctx, query)
	if err != nil {
		return "", err
	}
	return ans.Result, nil
}

// AskWithSources is Ask that also returns the chunks the answer was built from.
// Without an ingested page the result is NoDocumentsMessage and no sources.
func (s *RAGServiceImpl) AskWithSources(ctx context.Context, query string) (ans domain.Answer, err error) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	s.mu.RLock()
	qa := s.chain
	s.mu.RUnlock()
	if qa == nil {
		return domain.Answer{Query: query, Result: NoDocumentsMessage}, nil
	}

	start := time.Now()
	defer func() { s.metrics.ObserveAsk(time.Since(start), len(ans.SourceDocuments), err) }()

	s.logger.Debug("invoking chain", logging.Fields{"query": query, "llm": s.llm.Name()})
	ans, err = qa.Invoke(ctx, query)
	if err != nil {
		return domain.Answer{}, err
	}
	return ans, nil
}

// Clear forgets the ingested page and empties the index.
func (s *RAGServiceImpl) Clear(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	s.setState(nil, nil)
	s.logger.Info("index cleared", nil)
	return nil
}

func (s *RAGServiceImpl) setState(qa *chain.RetrievalQA, last *IngestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain = qa
	s.last = last
}

// Ready reports whether a page has been ingested and questions can be answered.
func (s *RAGServiceImpl) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain != nil
}

// Last returns the most recent successful ingest, if the index still holds it.
func (s *RAGServiceImpl) Last() (IngestResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return IngestResult{}, false
	}
	return *s.last, true
}

// Status describes the current index.
type Status struct {
	Ready   bool
	Title   string
	Source  string
	Chunks  int
	Indexed int // as reported by the vector store
}

// Status reports readiness, the last ingested page and the store's vector count.
func (s *RAGServiceImpl) Status(ctx context.Context) (Status, error) {
	st := Status{Ready: s.Ready()}
	if last, ok := s.Last(); ok {
		st.Title = last.Title
		st.Source = last.Source
		st.Chunks = last.Chunks
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return st, fmt.Errorf("count index: %w", err)
	}
	st.Indexed = n
	return st, nil
}
