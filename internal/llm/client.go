// Package llm provides a provider-agnostic interface for sending a single
// completion request to a large language model and getting its text reply.
// Both Anthropic (Claude) and OpenAI implement it; which one is used is a
// configuration choice.
package llm

import (
	"context"
	"net/http"
)

// CompletionRequest is everything a provider needs for one call.
type CompletionRequest struct {
	System      string  // Fixed instructions (system prompt)
	User        string  // The user's text
	MaxTokens   int     // Upper bound on output length
	Temperature float64 // Low values favour a stable, parseable format
}

// Client is the interface for LLM providers.
//
// Go interface design tip: keep interfaces small. Complete is the only call
// that does I/O; the name methods exist for logging and auditing.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	ProviderName() string
	ModelName() string
}

// options holds settings shared by every provider constructor.
type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a provider client. Tests use it to point the SDKs at an
// httptest server.
type Option func(*options)

// WithBaseURL overrides the provider's API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient replaces the HTTP client used by the SDK.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
