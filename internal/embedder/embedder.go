package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"policybot/internal/config"
	"policybot/internal/models"
)

// Embedder converts text into fixed-length vectors. EmbedBatch preserves
// input order 1:1 in its output.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// embedderClient is satisfied by *embeddings.EmbedderImpl from langchaingo.
type embedderClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

const maxRetries = 2 // 3 attempts total

type providerEmbedder struct {
	client   embedderClient
	provider string
	dim      int
	timeout  time.Duration
}

// New selects the configured embedding provider. Selection happens here
// once at startup; callers only ever see the Embedder interface.
func New(ctx context.Context, cfg config.EmbedConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderOpenAI, config.ProviderAzure:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

func (e *providerEmbedder) Dimension() int { return e.dim }

// withTimeout bounds a provider call so a stalled backend cannot hang the
// pipeline on the caller's background context.
func (e *providerEmbedder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *providerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var vec []float32
	op := func() error {
		var err error
		vec, err = e.client.EmbedQuery(ctx, text)
		return err
	}
	if err := e.retry(ctx, op); err != nil {
		return nil, &models.EmbeddingError{Provider: e.provider, Err: err}
	}
	return vec, nil
}

func (e *providerEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var vecs [][]float32
	op := func() error {
		var err error
		vecs, err = e.client.EmbedDocuments(ctx, texts)
		return err
	}
	if err := e.retry(ctx, op); err != nil {
		return nil, &models.EmbeddingError{Provider: e.provider, Err: err}
	}
	if len(vecs) != len(texts) {
		return nil, &models.EmbeddingError{
			Provider: e.provider,
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(texts)),
		}
	}
	return vecs, nil
}

// retry runs op with exponential backoff on transient provider failures.
func (e *providerEmbedder) retry(ctx context.Context, op func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil {
			log.Warn().Err(err).Str("provider", e.provider).Msg("embedding call failed, retrying")
		}
		return err
	}, bo)
}
