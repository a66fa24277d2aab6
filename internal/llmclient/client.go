package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"policybot/internal/models"
)

// Message roles accepted by GenerateWithHistory.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Client is the unified call interface to a language-model provider. The
// agent uses it for classification and generation; the concrete provider is
// chosen once at startup.
type Client interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
	GenerateWithHistory(ctx context.Context, messages []Message, opts ...Option) (string, error)
}

type Options struct {
	Temperature   float64
	MaxTokens     int
	SystemPrompt  string
	SingleAttempt bool
}

type Option func(*Options)

func WithTemperature(t float64) Option { return func(o *Options) { o.Temperature = t } }
func WithMaxTokens(n int) Option       { return func(o *Options) { o.MaxTokens = n } }
func WithSystemPrompt(s string) Option { return func(o *Options) { o.SystemPrompt = s } }

// WithSingleAttempt disables retries for calls whose caller has its own
// fallback, like query classification.
func WithSingleAttempt() Option { return func(o *Options) { o.SingleAttempt = true } }

const maxRetries = 2 // 3 attempts total

type langchainClient struct {
	model    llms.Model
	provider string
	timeout  time.Duration
	defaults Options
}

func (c *langchainClient) options(opts []Option) Options {
	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (c *langchainClient) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := c.options(opts)
	var msgs []llms.MessageContent
	if o.SystemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, o.SystemPrompt))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, prompt))
	return c.generate(ctx, msgs, o)
}

func (c *langchainClient) GenerateWithHistory(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	o := c.options(opts)
	msgs := make([]llms.MessageContent, 0, len(messages)+1)
	if o.SystemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, o.SystemPrompt))
	}
	for _, m := range messages {
		msgs = append(msgs, llms.TextParts(chatMessageType(m.Role), m.Content))
	}
	return c.generate(ctx, msgs, o)
}

func (c *langchainClient) generate(ctx context.Context, msgs []llms.MessageContent, o Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := func() (string, error) {
		resp, err := c.model.GenerateContent(ctx, msgs,
			llms.WithTemperature(o.Temperature),
			llms.WithMaxTokens(o.MaxTokens),
		)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response from %s", c.provider)
		}
		return strings.TrimSpace(resp.Choices[0].Content), nil
	}

	if o.SingleAttempt {
		return call()
	}

	var out string
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	err := backoff.Retry(func() error {
		var err error
		out, err = call()
		if err != nil {
			log.Warn().Err(err).Str("provider", c.provider).Msg("llm call failed, retrying")
		}
		return err
	}, bo)
	return out, err
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant, models.RoleAgent:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
