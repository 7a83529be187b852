package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/storypaint/core/client"
	"github.com/leofalp/storypaint/internal/utils"
	"github.com/leofalp/storypaint/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds message counts, image counts and the finish reason.
	LogLevelStandard

	// LogLevelVerbose adds the prompt text and the response text, truncated.
	// Prompts carry children's descriptions of their drawings; keep this off
	// in production.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every provider call to logger, which must not be
// nil.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			logger.InfoContext(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed", responseAttrs(response, elapsed, level)...)
			return response, nil
		}
	}
}

func requestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		images := 0
		for _, msg := range request.Messages {
			for _, part := range msg.Parts() {
				if part.Type == ai.ContentTypeImage {
					images++
				}
			}
		}
		attrs = append(attrs,
			slog.Int("message_count", len(request.Messages)),
			slog.Int("image_parts", images),
		)
	}

	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("prompt", utils.TruncateString(promptText(request), truncateLen)))
	}
	return attrs
}

// promptText joins the text parts of the first message.
func promptText(request ai.ChatRequest) string {
	if len(request.Messages) == 0 {
		return ""
	}
	text := ""
	for _, part := range request.Messages[0].Parts() {
		if part.Type == ai.ContentTypeText {
			text += part.Text
		}
	}
	return text
}

func responseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("images", len(response.Images)))
		if response.FinishReason != "" {
			attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
		}
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
	}
	return attrs
}
