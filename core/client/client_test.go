package client

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/observability"
	"github.com/leofalp/storypaint/providers/observability/slogobs"
)

// mockProvider records the last request and returns sendFunc's result.
type mockProvider struct {
	sendFunc func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error)
	last     ai.ChatRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) SendMessage(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	m.last = req
	if m.sendFunc != nil {
		return m.sendFunc(ctx, req)
	}
	return &ai.ChatResponse{
		Model:        req.Model,
		Content:      "test response",
		FinishReason: "stop",
		Usage:        &ai.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func tag(name string, order *[]string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			*order = append(*order, name)
			return next(ctx, request)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil")
	}
	if _, err := New(&mockProvider{}, WithMiddleware(nil)); err == nil {
		t.Error("New() with a nil middleware error = nil")
	}
}

func TestClient_DefaultModel(t *testing.T) {
	provider := &mockProvider{}
	c, err := New(provider, WithDefaultModel("gemini-2.0-flash"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Send(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if provider.last.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want the default", provider.last.Model)
	}

	if _, err := c.SendPrompt(context.Background(), "gemini-2.5-flash-image", ai.NewTextPart("hola")); err != nil {
		t.Fatalf("SendPrompt() error = %v", err)
	}
	if provider.last.Model != "gemini-2.5-flash-image" || len(provider.last.Messages) != 1 {
		t.Errorf("request = %+v", provider.last)
	}
	if c.Provider() != provider || c.DefaultModel() != "gemini-2.0-flash" {
		t.Error("accessors do not return the configured values")
	}
}

func TestClient_MiddlewareOrder(t *testing.T) {
	var order []string
	provider := &mockProvider{sendFunc: func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
		order = append(order, "provider")
		return &ai.ChatResponse{}, nil
	}}

	c, err := New(provider, WithMiddleware(tag("first", &order), tag("second", &order)), WithMiddleware(tag("third", &order)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Send(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []string{"first", "second", "third", "provider"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestClient_Observer(t *testing.T) {
	var buf bytes.Buffer
	observer := slogobs.New(slogobs.WithOutput(&buf), slogobs.WithLevel(slogobs.LevelTrace))

	var sawObserver, sawSpan bool
	provider := &mockProvider{}
	provider.sendFunc = func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
		sawObserver = observability.ObserverFromContext(ctx) != nil
		sawSpan = observability.SpanFromContext(ctx) != nil
		if req.Model == "broken" {
			return nil, errors.New("boom")
		}
		return &ai.ChatResponse{Content: "ok", FinishReason: "stop"}, nil
	}

	c, err := New(provider, WithObserver(observer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Send(context.Background(), ai.ChatRequest{Model: "m"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !sawObserver || !sawSpan {
		t.Errorf("provider context: observer %v, span %v", sawObserver, sawSpan)
	}

	if _, err := c.Send(context.Background(), ai.ChatRequest{Model: "broken"}); err == nil {
		t.Fatal("Send() error = nil")
	}

	if got := observer.CounterValue(observability.MetricLLMRequests); got != 2 {
		t.Errorf("%s = %d, want 2", observability.MetricLLMRequests, got)
	}
	for _, want := range []string{"llm send completed", "llm send failed", "error=boom"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("log lacks %q:\n%s", want, buf.String())
		}
	}
}
