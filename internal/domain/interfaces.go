package domain

import "context"

// Document represents a single web page loaded into the system.
type Document struct {
	ID       string
	Source   string
	Content  string
	Metadata map[string]any
}

// Title returns the page title recorded by the loader, if any.
func (d Document) Title() string {
	if v, ok := d.Metadata["title"].(string); ok {
		return v
	}
	return ""
}

// Chunk is a part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Metadata   map[string]any
}

// Source returns the URL the chunk was loaded from, if known.
func (c Chunk) Source() string {
	if v, ok := c.Metadata["source"].(string); ok {
		return v
	}
	return ""
}

// SearchResult represents a matching chunk with a relevance score.
// Scores are cosine similarities; higher is more relevant.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Message is a single turn sent to a chat model.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Answer is the output of a question-answering chain.
type Answer struct {
	Query           string
	Result          string
	SourceDocuments []SearchResult
}

// Loader fetches a source and turns it into documents.
type Loader interface {
	Load(ctx context.Context, source string) ([]Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Dimension may be 0 until the first Embed call.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fitter is implemented by embedders whose vectors depend on the indexed
// corpus. Fit returns a new embedder fitted on corpus and leaves the receiver
// unchanged.
type Fitter interface {
	Fit(corpus []string) (Embedder, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Retriever returns the stored chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]SearchResult, error)
}

// ChatModel generates a reply for a conversation.
type ChatModel interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
