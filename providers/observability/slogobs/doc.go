// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans and metric updates are written as debug entries; log calls map to
// the matching slog level, with an extra TRACE level below debug. Format and
// level default to the STORYPAINT_LOG_FORMAT / LOG_FORMAT and
// STORYPAINT_LOG_LEVEL / LOG_LEVEL environment variables and can be set with
// [WithFormat] and [WithLevel].
package slogobs
