package client

import (
	"context"
	"strings"
	"time"

	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/observability"
)

// NewObservabilityMiddleware wraps each provider call in a span and records
// request counts and latency. The span and observer are stored in the context
// so providers can add events to them.
func NewObservabilityMiddleware(observer observability.Provider) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			model := request.Model

			ctx, span := observer.StartSpan(ctx, observability.SpanLLMRequest,
				observability.String(observability.AttrLLMModel, model),
			)
			defer span.End()
			ctx = observability.ContextWithObserver(ctx, observer)

			observer.Debug(ctx, "llm send",
				observability.String(observability.AttrLLMModel, model),
				observability.Int("request.messages", len(request.Messages)),
			)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			observer.Histogram(observability.MetricLLMDuration).Record(ctx, elapsed.Seconds(),
				observability.String(observability.AttrLLMModel, model),
			)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, "llm send failed")
				observer.Error(ctx, "llm send failed",
					observability.Error(err),
					observability.Duration(observability.AttrDuration, elapsed),
					observability.String(observability.AttrLLMModel, model),
				)
				observer.Counter(observability.MetricLLMRequests).Add(ctx, 1,
					observability.String(observability.AttrLLMModel, model),
					observability.String(observability.AttrStatus, "error"),
				)
				return nil, err
			}

			recordSuccess(ctx, span, observer, response, elapsed, model)
			return response, nil
		}
	}
}

func recordSuccess(ctx context.Context, span observability.Span, observer observability.Provider, response *ai.ChatResponse, elapsed time.Duration, model string) {
	observer.Counter(observability.MetricLLMRequests).Add(ctx, 1,
		observability.String(observability.AttrLLMModel, model),
		observability.String(observability.AttrStatus, "success"),
	)

	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, model),
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		observability.Duration(observability.AttrDuration, elapsed),
		observability.Int("response.images", len(response.Images)),
	}

	if response.Usage != nil {
		span.SetAttributes(
			observability.Int(observability.AttrLLMTokensPrompt, response.Usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, response.Usage.CompletionTokens),
			observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
		)
		attrs = append(attrs, observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens))
	}

	if response.Content != "" {
		attrs = append(attrs, observability.Int("response.chars", len(response.Content)))
	}

	observer.Info(ctx, "llm send completed", attrs...)
	span.SetStatus(observability.StatusOK, strings.ToLower(response.FinishReason))
}
