// Package ai wraps the OpenAI API behind the two operations the engine
// needs: text embedding and grounded chat completion. Indexing and querying
// share one client, so both paths always embed with the same model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/AuroraClub/concierge-mvp/engine/domain"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Default model ids. Overridable via Options, but the embed model must be
// identical for indexing and querying.
const (
	DefaultEmbedModel = "text-embedding-3-small"
	DefaultChatModel  = "gpt-4o-mini"
)

// Options configures the client.
type Options struct {
	EmbedModel  string
	ChatModel   string
	Temperature float32
	// RequestsPerSec paces outbound API calls; zero disables pacing.
	RequestsPerSec float64
	Burst          int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		EmbedModel:     DefaultEmbedModel,
		ChatModel:      DefaultChatModel,
		Temperature:    0.2,
		RequestsPerSec: 5,
		Burst:          10,
	}
}

// Client calls the OpenAI API with rate pacing and error classification.
type Client struct {
	api     *openai.Client
	opts    Options
	limiter *rate.Limiter
}

// NewClient creates a Client with the given API key.
func NewClient(apiKey string, opts Options) *Client {
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst)
	}
	return &Client{
		api:     openai.NewClient(apiKey),
		opts:    opts,
		limiter: limiter,
	}
}

// EmbedModel returns the model id used for embeddings.
func (c *Client) EmbedModel() string { return c.opts.EmbedModel }

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.wait(ctx); err != nil {
		return nil, classify("embed", err)
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.opts.EmbedModel),
	})
	if err != nil {
		return nil, classify("embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embed returned no data", domain.ErrDependency)
	}
	return resp.Data[0].Embedding, nil
}

// Complete sends a single-user-message prompt and returns the trimmed
// completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", classify("complete", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.ChatModel,
		Temperature: c.opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify("complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", domain.ErrDependency)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// classify maps transport errors onto the domain taxonomy. Deadline
// expiry becomes ErrDependencyTimeout, anything else ErrDependency.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrDependencyTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", domain.ErrDependencyTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDependency, op, err)
}
