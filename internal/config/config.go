package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider and backend names accepted by Validate.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"

	BackendLocal    = "local"
	BackendPostgres = "postgres"
)

// Known embedding dimensions per provider.
const (
	DimensionGemini = 768
	DimensionOpenAI = 1536
)

type Config struct {
	LLM         LLMConfig     `yaml:"llm"`
	Embedding   EmbedConfig   `yaml:"embedding"`
	VectorStore StoreConfig   `yaml:"vectorstore"`
	RAG         RAGConfig     `yaml:"rag"`
	Session     SessionConfig `yaml:"session"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"` // gemini, openai or azure
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	APIVersion  string        `yaml:"api_version"` // azure only
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbedConfig struct {
	Provider   string        `yaml:"provider"` // gemini, openai or azure
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	APIVersion string        `yaml:"api_version"`
	Dimension  int           `yaml:"dimension"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"` // local or postgres
	Path          string `yaml:"path"`    // local backend: persistent DB directory
	Collection    string `yaml:"collection"`
	DSN           string `yaml:"dsn"`      // postgres backend
	Password      string `yaml:"password"` // postgres backend
	Dimension     int    `yaml:"dimension"`
	HybridKeyword bool   `yaml:"hybrid_keyword"` // postgres only: lexical boost
	Debug         bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`    // tokens
	ChunkOverlap        int     `yaml:"chunk_overlap"` // tokens
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
}

type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxHistory      int           `yaml:"max_history"` // turns kept per session
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LoadConfig reads a YAML config file and fills in defaults. The returned
// config is immutable by convention; reloading requires a restart.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 500
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 50
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.SimilarityThreshold == 0 {
		c.RAG.SimilarityThreshold = 0.7
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = time.Hour
	}
	if c.Session.MaxHistory == 0 {
		c.Session.MaxHistory = 10
	}
	if c.Session.CleanupInterval == 0 {
		c.Session.CleanupInterval = 5 * time.Minute
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = dimensionFor(c.Embedding.Provider)
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "policy_chunks"
	}
	if c.VectorStore.Dimension == 0 {
		c.VectorStore.Dimension = c.Embedding.Dimension
	}
}

func dimensionFor(provider string) int {
	if provider == ProviderGemini {
		return DimensionGemini
	}
	return DimensionOpenAI
}

// Validate rejects configuration errors at startup so they never surface at
// query time. In particular an embedder whose dimensionality does not match
// the configured index is a fatal config error here.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAzure:
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAzure:
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
	switch c.VectorStore.Backend {
	case BackendLocal:
		if c.VectorStore.Path == "" {
			return fmt.Errorf("vectorstore.path is required for the local backend")
		}
	case BackendPostgres:
		if c.VectorStore.DSN == "" {
			return fmt.Errorf("vectorstore.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown vectorstore backend: %q", c.VectorStore.Backend)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.SimilarityThreshold < 0 || c.RAG.SimilarityThreshold > 1 {
		return fmt.Errorf("rag.similarity_threshold must be in [0,1], got %v", c.RAG.SimilarityThreshold)
	}
	if c.Embedding.Dimension != c.VectorStore.Dimension {
		return fmt.Errorf("embedding dimension %d does not match vectorstore dimension %d",
			c.Embedding.Dimension, c.VectorStore.Dimension)
	}
	return nil
}
