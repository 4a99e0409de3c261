// Package retriever turns a query into the most relevant stored chunks.
package retriever

import (
	"context"
	"fmt"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/logging"
)

const (
	DefaultTopK           = 3
	DefaultScoreThreshold = 0.5
)

// ScoreThresholdRetriever returns up to k chunks whose similarity to the query
// is at least the threshold.
type ScoreThresholdRetriever struct {
	embedder  domain.Embedder
	store     domain.VectorStore
	k         int
	threshold float64
	logger    logging.Logger
}

// Option customises a ScoreThresholdRetriever.
type Option func(*ScoreThresholdRetriever)

func WithTopK(k int) Option {
	return func(r *ScoreThresholdRetriever) {
		if k > 0 {
			r.k = k
		}
	}
}

func WithScoreThreshold(t float64) Option {
	return func(r *ScoreThresholdRetriever) { r.threshold = t }
}

func WithLogger(l logging.Logger) Option {
	return func(r *ScoreThresholdRetriever) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewScoreThreshold(embedder domain.Embedder, store domain.VectorStore, opts ...Option) *ScoreThresholdRetriever {
	r := &ScoreThresholdRetriever{
		embedder:  embedder,
		store:     store,
		k:         DefaultTopK,
		threshold: DefaultScoreThreshold,
		logger:    logging.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ScoreThresholdRetriever) Retrieve(ctx context.Context, query string) ([]domain.SearchResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	found, err := r.store.Search(ctx, vec, r.k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	kept := make([]domain.SearchResult, 0, len(found))
	for _, res := range found {
		if res.Score >= r.threshold {
			kept = append(kept, res)
		}
	}
	if len(kept) == 0 {
		r.logger.Warn("no relevant chunks retrieved", logging.Fields{
			"threshold":  r.threshold,
			"candidates": len(found),
		})
	}
	return kept, nil
}

func (r *ScoreThresholdRetriever) TopK() int { return r.k }

func (r *ScoreThresholdRetriever) ScoreThreshold() float64 { return r.threshold }
