package embedder

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"policybot/internal/config"
)

const (
	defaultGeminiModel = "text-embedding-004"
	defaultOpenAIModel = "text-embedding-ada-002"
)

// NewGemini builds the 768-dimension Gemini embedding backend.
func NewGemini(ctx context.Context, cfg config.EmbedConfig) (Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &providerEmbedder{client: impl, provider: config.ProviderGemini, dim: cfg.Dimension, timeout: cfg.Timeout}, nil
}

// NewOpenAI builds the 1536-dimension OpenAI-compatible embedding backend.
// Azure deployments use the same client with the Azure API type.
func NewOpenAI(cfg config.EmbedConfig) (Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Provider == config.ProviderAzure {
		opts = append(opts, openai.WithAPIType(openai.APITypeAzure))
		if cfg.APIVersion != "" {
			opts = append(opts, openai.WithAPIVersion(cfg.APIVersion))
		}
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &providerEmbedder{client: impl, provider: cfg.Provider, dim: cfg.Dimension, timeout: cfg.Timeout}, nil
}
