package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/leofalp/storypaint/providers/observability"
)

const requestIDHeader = "X-Request-Id"

// requestID keeps a caller supplied X-Request-Id or assigns a new UUID, and
// stores it where middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument logs every request and records its count and latency by route
// pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		ctx := r.Context()
		s.observer.Counter(observability.MetricHTTPRequests).Add(ctx, 1,
			observability.String(observability.AttrHTTPRoute, route),
			observability.String(observability.AttrHTTPStatusCode, strconv.Itoa(status)),
		)
		s.observer.Histogram(observability.MetricHTTPDuration).Record(ctx, elapsed.Seconds(),
			observability.String(observability.AttrHTTPRoute, route),
		)

		attrs := []observability.Attribute{
			observability.String(observability.AttrRequestID, middleware.GetReqID(ctx)),
			observability.String(observability.AttrHTTPMethod, r.Method),
			observability.String(observability.AttrHTTPRoute, route),
			observability.Int(observability.AttrHTTPStatusCode, status),
			observability.Int(observability.AttrHTTPResponseBodySize, ww.BytesWritten()),
			observability.Duration(observability.AttrDuration, elapsed),
		}
		if status >= http.StatusInternalServerError {
			s.observer.Error(ctx, "request failed", attrs...)
			return
		}
		s.observer.Info(ctx, "request served", attrs...)
	})
}
