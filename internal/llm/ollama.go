// Package llm contains the chat model clients that generate answers.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"rag-web-qa/internal/domain"
)

// OllamaConfig configures a chat model served by Ollama.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Ollama is a non-streaming chat client for an Ollama server.
type Ollama struct {
	client      *api.Client
	model       string
	temperature float64
}

func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	return &Ollama{
		client:      api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (o *Ollama) Name() string { return "ollama:" + o.model }

func (o *Ollama) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}
	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	options := map[string]any{}
	if o.temperature > 0 {
		options["temperature"] = o.temperature
	}
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  options,
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return sb.String(), nil
}
