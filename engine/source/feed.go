// Package source fetches member messages from the remote feed API.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AuroraClub/concierge-mvp/engine/domain"
	"github.com/AuroraClub/concierge-mvp/pkg/fn"
)

// Feed is a client for the message feed endpoint.
type Feed struct {
	url    string
	client *http.Client
	retry  fn.RetryOpts
}

// Option configures a Feed.
type Option func(*Feed)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Feed) { f.client = c }
}

// WithRetry overrides the default retry policy.
func WithRetry(opts fn.RetryOpts) Option {
	return func(f *Feed) { f.retry = opts }
}

// NewFeed creates a Feed for the given URL.
func NewFeed(url string, opts ...Option) *Feed {
	f := &Feed{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 2 * time.Second,
			MaxWait:     15 * time.Second,
			Jitter:      true,
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// feedResponse is the wire shape of the feed payload.
type feedResponse struct {
	Items []domain.Message `json:"items"`
}

// Fetch performs one read of the full feed. A missing or empty items field
// yields an empty slice, never nil. Transport and decode failures are
// classified as ErrSourceUnavailable.
func (f *Feed) Fetch(ctx context.Context) ([]domain.Message, error) {
	result := fn.Retry(ctx, f.retry, func(ctx context.Context) fn.Result[*feedResponse] {
		return f.doGet(ctx)
	})

	resp, err := result.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	if resp.Items == nil {
		return []domain.Message{}, nil
	}
	return resp.Items, nil
}

func (f *Feed) doGet(ctx context.Context) fn.Result[*feedResponse] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fn.Err[*feedResponse](err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fn.Errf[*feedResponse]("feed get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fn.Errf[*feedResponse]("feed get: status %d", resp.StatusCode)
	}

	var out feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fn.Errf[*feedResponse]("feed decode: %w", err)
	}
	return fn.Ok(&out)
}
