// Package ollama embeds text with a model served by a local Ollama instance.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
)

// Config configures the Ollama embeddings client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the Ollama embeddings endpoint.
type Client struct {
	api   *api.Client
	model string

	mu        sync.RWMutex
	dimension int
}

// NewClient creates a client for the configured server and model.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "all-minilm"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	return &Client{
		api:   api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model: cfg.Model,
	}, nil
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}

	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(resp.Embedding)
	}
	c.mu.Unlock()
	return resp.Embedding, nil
}
