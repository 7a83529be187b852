package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed with a retryable error. It wraps the last provider error as well.
var ErrRetryExhausted = errors.New("storypaint: all retry attempts exhausted")
