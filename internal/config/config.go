package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoaderConfig configures how web pages are fetched.
type LoaderConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxBytes    int64  `yaml:"max_bytes"`
	UserAgent   string `yaml:"user_agent"`
}

// OllamaConfig holds connection details for an Ollama server.
type OllamaConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string        `yaml:"type"`
	Concurrency int           `yaml:"concurrency"`
	Ollama      *OllamaConfig `yaml:"ollama,omitempty"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type    string         `yaml:"type"`
	Chromem *ChromemConfig `yaml:"chromem,omitempty"`
	Qdrant  *QdrantConfig  `yaml:"qdrant,omitempty"`
	SQLite  *SQLiteConfig  `yaml:"sqlite,omitempty"`
}

// ChromemConfig configures the embedded chromem-go database.
type ChromemConfig struct {
	Collection  string `yaml:"collection"`
	PersistPath string `yaml:"persist_path"`
	Compress    bool   `yaml:"compress"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SQLiteConfig points at the sqlite file backing the sqlite vector store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RetrieverConfig holds the similarity-threshold retrieval policy.
type RetrieverConfig struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// LLMConfig selects and configures the chat model.
type LLMConfig struct {
	Type   string        `yaml:"type"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// ChainConfig configures the question-answering chain.
type ChainConfig struct {
	// PromptTemplate uses Go template syntax with .question and .context.
	PromptTemplate string `yaml:"prompt_template,omitempty"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Loader      LoaderConfig      `yaml:"loader"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	LLM         LLMConfig         `yaml:"llm"`
	Chain       ChainConfig       `yaml:"chain"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

const (
	defaultOllamaURL      = "http://localhost:11434"
	defaultOpenAIURL      = "https://api.openai.com/v1"
	defaultOpenAIKeyEnv   = "OPENAI_API_KEY"
	defaultEmbeddingModel = "all-minilm"
	defaultChatModel      = "mistral"
	defaultChunkOverlap   = 20
	defaultScoreThreshold = 0.5
)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	// Zero is a meaningful overlap and threshold, so these are seeded before
	// decoding and only replaced when the file sets them.
	cfg := AppConfig{
		Chunker:   ChunkerConfig{ChunkOverlap: defaultChunkOverlap},
		Retriever: RetrieverConfig{ScoreThreshold: defaultScoreThreshold},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunker:     ChunkerConfig{Type: "recursive", ChunkOverlap: defaultChunkOverlap},
		Embedder:    EmbedderConfig{Type: "ollama"},
		VectorStore: VectorStoreConfig{Type: "chromem"},
		Retriever:   RetrieverConfig{ScoreThreshold: defaultScoreThreshold},
		LLM:         LLMConfig{Type: "ollama"},
		Summarizer:  SummarizerConfig{Type: "frequency"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Loader.TimeoutSecs == 0 {
		cfg.Loader.TimeoutSecs = 20
	}
	if cfg.Loader.MaxBytes == 0 {
		cfg.Loader.MaxBytes = 1_500_000
	}
	if cfg.Loader.UserAgent == "" {
		cfg.Loader.UserAgent = "rag-web-qa/1.0"
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1024
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	switch cfg.Embedder.Type {
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaConfig{}
		}
		ollamaDefaults(cfg.Embedder.Ollama, defaultEmbeddingModel, 30)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	switch cfg.VectorStore.Type {
	case "chromem":
		if cfg.VectorStore.Chromem == nil {
			cfg.VectorStore.Chromem = &ChromemConfig{}
		}
		if cfg.VectorStore.Chromem.Collection == "" {
			cfg.VectorStore.Chromem.Collection = "web"
		}
	case "qdrant":
		if cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "web"
		}
	case "sqlite":
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.Path == "" {
			cfg.VectorStore.SQLite.Path = "rag.db"
		}
	}

	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}

	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "ollama"
	}
	switch cfg.LLM.Type {
	case "ollama":
		if cfg.LLM.Ollama == nil {
			cfg.LLM.Ollama = &OllamaConfig{}
		}
		ollamaDefaults(cfg.LLM.Ollama, defaultChatModel, 120)
	case "openai":
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.LLM.OpenAI, "gpt-4o-mini")
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func ollamaDefaults(c *OllamaConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = defaultOllamaURL
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}

func openAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = defaultOpenAIURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultOpenAIKeyEnv
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
}

// applyEnvOverrides lets the environment (or a .env file) win over the YAML file.
func applyEnvOverrides(cfg *AppConfig) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if cfg.Embedder.Ollama != nil {
			cfg.Embedder.Ollama.BaseURL = host
		}
		if cfg.LLM.Ollama != nil {
			cfg.LLM.Ollama.BaseURL = host
		}
	}
	if lvl := os.Getenv("RAG_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if addr := os.Getenv("RAG_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}
