package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("RAG_LOG_LEVEL", "")
	t.Setenv("RAG_SERVER_ADDR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "recursive", cfg.Chunker.Type)
	assert.Equal(t, 1024, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retriever.TopK)
	assert.Equal(t, 0.5, cfg.Retriever.ScoreThreshold)

	assert.Equal(t, "ollama", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.Ollama)
	assert.Equal(t, "all-minilm", cfg.Embedder.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Embedder.Ollama.BaseURL)

	assert.Equal(t, "ollama", cfg.LLM.Type)
	require.NotNil(t, cfg.LLM.Ollama)
	assert.Equal(t, "mistral", cfg.LLM.Ollama.Model)
	assert.Equal(t, 120, cfg.LLM.Ollama.TimeoutSecs)

	assert.Equal(t, "chromem", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.Chromem)
	assert.Equal(t, "web", cfg.VectorStore.Chromem.Collection)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("RAG_LOG_LEVEL", "")
	t.Setenv("RAG_SERVER_ADDR", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
vector_store:
  type: sqlite
llm:
  type: openai
retriever:
  top_k: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)

	require.NotNil(t, cfg.VectorStore.SQLite)
	assert.Equal(t, "rag.db", cfg.VectorStore.SQLite.Path)

	require.NotNil(t, cfg.LLM.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)

	assert.Equal(t, 5, cfg.Retriever.TopK)
	assert.Equal(t, 0.5, cfg.Retriever.ScoreThreshold)
	assert.Equal(t, 1024, cfg.Chunker.ChunkSize)
}

func TestLoad_ExplicitZeroesAreKept(t *testing.T) {
	tests := []struct {
		name          string
		yml           string
		wantOverlap   int
		wantThreshold float64
	}{
		{
			name:          "explicit zero",
			yml:           "chunker:\n  chunk_overlap: 0\nretriever:\n  score_threshold: 0\n",
			wantOverlap:   0,
			wantThreshold: 0,
		},
		{
			name:          "sections without the keys",
			yml:           "chunker:\n  chunk_size: 512\nretriever:\n  top_k: 2\n",
			wantOverlap:   20,
			wantThreshold: 0.5,
		},
		{
			name:          "explicit values",
			yml:           "chunker:\n  chunk_overlap: 64\nretriever:\n  score_threshold: 0.25\n",
			wantOverlap:   64,
			wantThreshold: 0.25,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOverlap, cfg.Chunker.ChunkOverlap)
			assert.Equal(t, tt.wantThreshold, cfg.Retriever.ScoreThreshold)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("RAG_LOG_LEVEL", "debug")
	t.Setenv("RAG_SERVER_ADDR", ":9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://ollama:11434", cfg.Embedder.Ollama.BaseURL)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.Ollama.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("RAG_LOG_LEVEL", "")
	t.Setenv("RAG_SERVER_ADDR", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Retriever.TopK = 7

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}
