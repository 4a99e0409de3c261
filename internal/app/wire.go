// Package app assembles the service and its components from configuration.
package app

import (
	"fmt"
	"io"
	"time"

	"rag-web-qa/internal/chunker"
	"rag-web-qa/internal/config"
	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/embedding/ollama"
	"rag-web-qa/internal/embedding/openai"
	"rag-web-qa/internal/embedding/tfidf"
	"rag-web-qa/internal/llm"
	"rag-web-qa/internal/loader"
	"rag-web-qa/internal/logging"
	"rag-web-qa/internal/service"
	"rag-web-qa/internal/summarizer"
	"rag-web-qa/internal/vectorstore/chromem"
	"rag-web-qa/internal/vectorstore/memory"
	"rag-web-qa/internal/vectorstore/qdrant"
	"rag-web-qa/internal/vectorstore/sqlite"
)

// App is a fully wired service plus the resources it owns.
type App struct {
	Service *service.RAGServiceImpl
	Logger  logging.Logger
	closers []io.Closer
}

// Close releases resources held by the vector store.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build wires every component named in cfg. metrics may be nil.
func Build(cfg *config.AppConfig, logger logging.Logger, metrics service.Metrics) (*App, error) {
	if logger == nil {
		logger = NewLogger(cfg)
	}
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	ch, err := NewChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	st, err := NewVectorStore(cfg.VectorStore, emb)
	if err != nil {
		return nil, err
	}
	model, err := NewChatModel(cfg.LLM)
	if err != nil {
		return nil, err
	}
	sum, err := NewSummarizer(cfg.Summarizer)
	if err != nil {
		return nil, err
	}

	a := &App{Logger: logger}
	if c, ok := st.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.Service = service.NewRAGService(
		NewLoader(cfg.Loader),
		ch,
		emb,
		st,
		model,
		sum,
		service.Options{
			TopK:                cfg.Retriever.TopK,
			ScoreThreshold:      cfg.Retriever.ScoreThreshold,
			PromptTemplate:      cfg.Chain.PromptTemplate,
			SummaryMaxSentences: cfg.Summarizer.MaxSentences,
			EmbedConcurrency:    cfg.Embedder.Concurrency,
			Logger:              logger.WithPrefix("service"),
			Metrics:             metrics,
		},
	)
	logger.Info("components assembled", logging.Fields{
		"embedder":     emb.Name(),
		"chunker":      cfg.Chunker.Type,
		"vector_store": cfg.VectorStore.Type,
		"llm":          model.Name(),
	})
	return a, nil
}

func NewLogger(cfg *config.AppConfig) logging.Logger {
	return logging.New("rag", logging.ParseLevel(cfg.Log.Level))
}

func NewLoader(cfg config.LoaderConfig) *loader.WebLoader {
	return loader.NewWebLoader(loader.Config{
		Timeout:   secs(cfg.TimeoutSecs),
		MaxBytes:  cfg.MaxBytes,
		UserAgent: cfg.UserAgent,
	})
}

func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "ollama", "":
		c := cfg.Ollama
		if c == nil {
			c = &config.OllamaConfig{}
		}
		return ollama.NewClient(ollama.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: secs(c.TimeoutSecs),
		})
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   secs(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func NewChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "recursive", "":
		return chunker.NewRecursiveChunker(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func NewVectorStore(cfg config.VectorStoreConfig, emb domain.Embedder) (domain.VectorStore, error) {
	switch cfg.Type {
	case "chromem", "":
		c := cfg.Chromem
		if c == nil {
			c = &config.ChromemConfig{}
		}
		return chromem.NewStorage(chromem.Config{
			Collection:  c.Collection,
			PersistPath: c.PersistPath,
			Compress:    c.Compress,
		}, emb)
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    secs(cfg.Qdrant.TimeoutSecs),
		}), nil
	case "sqlite":
		path := "rag.db"
		if cfg.SQLite != nil && cfg.SQLite.Path != "" {
			path = cfg.SQLite.Path
		}
		return sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func NewChatModel(cfg config.LLMConfig) (domain.ChatModel, error) {
	switch cfg.Type {
	case "ollama", "":
		c := cfg.Ollama
		if c == nil {
			c = &config.OllamaConfig{}
		}
		return llm.NewOllama(llm.OllamaConfig{
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Timeout:     secs(c.TimeoutSecs),
			Temperature: c.Temperature,
		})
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		return llm.NewOpenAI(llm.OpenAIConfig{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     secs(cfg.OpenAI.TimeoutSecs),
			Temperature: cfg.OpenAI.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}

func NewSummarizer(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
