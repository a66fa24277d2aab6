package llmclient

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"policybot/internal/config"
)

const (
	defaultGeminiModel = "gemini-1.5-flash"
	defaultOpenAIModel = "gpt-4"
)

// New selects the configured LLM provider once at startup.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderOpenAI, config.ProviderAzure:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

func NewGemini(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &langchainClient{
		model:    llm,
		provider: config.ProviderGemini,
		timeout:  cfg.Timeout,
		defaults: Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
	}, nil
}

// NewOpenAI builds the OpenAI-compatible client; Azure deployments use the
// same client with the Azure API type and a deployment base URL.
func NewOpenAI(cfg config.LLMConfig) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(model),
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
	return &langchainClient{
		model:    llm,
		provider: cfg.Provider,
		timeout:  cfg.Timeout,
		defaults: Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
	}, nil
}
