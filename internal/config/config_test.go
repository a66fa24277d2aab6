package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
llm:
  provider: gemini
embedding:
  provider: gemini
vectorstore:
  backend: local
  path: ./index
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, float32(0.7), cfg.RAG.SimilarityThreshold)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10, cfg.Session.MaxHistory)
	assert.Equal(t, DimensionGemini, cfg.Embedding.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, DimensionGemini, cfg.VectorStore.Dimension)
	assert.Equal(t, "policy_chunks", cfg.VectorStore.Collection)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOpenAIDimension(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
llm:
  provider: openai
embedding:
  provider: openai
vectorstore:
  backend: local
  path: ./index
`))
	require.NoError(t, err)
	assert.Equal(t, DimensionOpenAI, cfg.Embedding.Dimension)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, minimalYAML))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.LLM.Provider = "claude"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.Provider = "mystery"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.VectorStore.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.VectorStore.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.VectorStore.Backend = BackendPostgres
	cfg.VectorStore.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RAG.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateDimensionMismatch(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
llm:
  provider: gemini
embedding:
  provider: gemini
  dimension: 768
vectorstore:
  backend: local
  path: ./index
  dimension: 1536
`))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "does not match")
}
