package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/leofalp/storypaint/core/client"
	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/observability"
)

// RetryConfig tunes the retry middleware. Zero values take the defaults noted
// on each field.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first failure. Default: 2.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Default: 20s.
	MaxBackoff time.Duration

	// RetryableFunc decides whether an error is worth retrying. Default:
	// temporary *ai.StatusError values and network errors.
	RetryableFunc func(error) bool
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 20 * time.Second
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = defaultRetryableFunc
	}
}

// defaultRetryableFunc retries rate limits, server errors and network
// failures. Cancellation and deadlines are final.
func defaultRetryableFunc(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *ai.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// NewRetryMiddleware retries failed sends with exponential backoff and
// jitter. Non-retryable errors are returned unchanged; when retries run out
// the error wraps both ErrRetryExhausted and the last provider error.
func NewRetryMiddleware(config RetryConfig) client.Middleware {
	applyRetryDefaults(&config)

	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = config.InitialBackoff
			policy.MaxInterval = config.MaxBackoff

			attempts := 0
			permanent := false
			operation := func() (*ai.ChatResponse, error) {
				attempts++
				response, err := next(ctx, request)
				if err == nil {
					return response, nil
				}
				if !config.RetryableFunc(err) {
					permanent = true
					return nil, backoff.Permanent(err)
				}
				return nil, err
			}

			notify := func(err error, wait time.Duration) {
				if span := observability.SpanFromContext(ctx); span != nil {
					span.AddEvent(observability.EventLLMRetry,
						observability.Int(observability.AttrLLMAttempt, attempts),
						observability.Duration("retry.wait", wait),
						observability.Error(err),
					)
				}
			}

			response, err := backoff.Retry(ctx, operation,
				backoff.WithBackOff(policy),
				backoff.WithMaxTries(uint(config.MaxRetries+1)),
				backoff.WithNotify(notify),
			)
			switch {
			case err == nil:
				return response, nil
			case permanent || ctx.Err() != nil:
				return nil, err
			default:
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
			}
		}
	}
}
