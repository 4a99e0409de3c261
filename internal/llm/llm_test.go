package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-web-qa/internal/domain"
)

func TestOllama_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"mistral","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Goroutines are lightweight threads."},"done":true}`))
	}))
	defer srv.Close()

	m, err := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "mistral", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "ollama:mistral", m.Name())

	out, err := m.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "What are goroutines?"}})
	require.NoError(t, err)

	assert.Equal(t, "Goroutines are lightweight threads.", out)
	assert.Equal(t, "mistral", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, 0.2, got["options"].(map[string]any)["temperature"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestOllama_ChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"mistral\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	m, err := NewOllama(OllamaConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = m.Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenAI_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Channels connect goroutines."}}]}`))
	}))
	defer srv.Close()
	t.Setenv("RAG_TEST_OPENAI_KEY", "sk-test")

	m, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKeyEnv: "RAG_TEST_OPENAI_KEY"})
	require.NoError(t, err)

	out, err := m.Chat(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "Be brief."},
		{Role: domain.RoleUser, Content: "What connects goroutines?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Channels connect goroutines.", out)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAI_MissingKey(t *testing.T) {
	t.Setenv("RAG_TEST_OPENAI_KEY", "")

	_, err := NewOpenAI(OpenAIConfig{APIKeyEnv: "RAG_TEST_OPENAI_KEY"})
	assert.Error(t, err)
}
