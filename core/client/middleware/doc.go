// Package middleware provides the built-in client middlewares. Each
// constructor returns a [client.Middleware] ready for [client.WithMiddleware].
//
//   - [NewRetryMiddleware] retries temporary provider failures (HTTP 429,
//     408 and 5xx) with exponential backoff.
//   - [NewTimeoutMiddleware] bounds a single call with context.WithTimeout.
//   - [NewLoggingMiddleware] writes slog entries before and after each call.
//
// Middlewares execute outermost-first:
//
//	c, err := client.New(provider,
//	    client.WithMiddleware(
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 2}),
//	        middleware.NewTimeoutMiddleware(60*time.Second),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// Here each attempt gets its own 60 second deadline.
package middleware
