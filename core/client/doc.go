// Package client wraps an [ai.Provider] in a middleware chain and fills in
// request defaults.
//
// The primary entry point is [New], which accepts a provider and functional
// options ([WithDefaultModel], [WithObserver], [WithMiddleware]). A Client is
// immutable and safe for concurrent use; every call is independent.
package client
