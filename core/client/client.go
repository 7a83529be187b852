package client

import (
	"context"
	"errors"

	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/observability"
)

// Client sends requests to a provider through a fixed middleware chain.
type Client struct {
	provider     ai.Provider
	defaultModel string
	observer     observability.Provider
	send         SendFunc
}

type options struct {
	defaultModel string
	observer     observability.Provider
	middlewares  []Middleware
}

// Option configures a Client.
type Option func(*options)

// WithDefaultModel sets the model used when a request leaves Model empty.
func WithDefaultModel(model string) Option {
	return func(o *options) {
		o.defaultModel = model
	}
}

// WithObserver records a span, a request counter and a latency histogram for
// every call. The observability middleware is the outermost wrapper, so it
// sees the final outcome after retries.
func WithObserver(observer observability.Provider) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithMiddleware appends middlewares to the chain.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}

// New creates a Client. It fails when provider or any middleware is nil.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("client: provider is nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	for _, middleware := range o.middlewares {
		if middleware == nil {
			return nil, errors.New("client: nil middleware")
		}
	}

	middlewares := o.middlewares
	if o.observer != nil {
		middlewares = append([]Middleware{NewObservabilityMiddleware(o.observer)}, middlewares...)
	}

	return &Client{
		provider:     provider,
		defaultModel: o.defaultModel,
		observer:     o.observer,
		send:         buildSendChain(provider, middlewares),
	}, nil
}

// Provider returns the wrapped provider.
func (c *Client) Provider() ai.Provider {
	return c.provider
}

// DefaultModel returns the model used for requests without one.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// Send runs request through the chain. An empty Model is replaced with the
// default model.
func (c *Client) Send(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if request.Model == "" {
		request.Model = c.defaultModel
	}
	return c.send(ctx, request)
}

// SendPrompt sends a single user message made of parts.
func (c *Client) SendPrompt(ctx context.Context, model string, parts ...ai.ContentPart) (*ai.ChatResponse, error) {
	return c.Send(ctx, ai.ChatRequest{
		Model:    model,
		Messages: []ai.Message{{Role: ai.RoleUser, ContentParts: parts}},
	})
}
