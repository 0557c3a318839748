// Package routing binds the trace emission pipeline to an HTTP routing
// layer: it scopes a request identifier to each request, reports route
// resolutions to the emitter, and guarantees the end-of-routing release that
// keeps the dedup set bounded.
package routing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/routelens/routelens/pkg/emitter"
)

// RequestIDHeader is the HTTP header carrying an externally assigned
// request identifier.
const RequestIDHeader = "X-Request-ID"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// requestIDContextKey is the context key for storing the request ID
const requestIDContextKey contextKey = "requestID"

// RequestScope assigns each request an identifier (incoming header or a
// fresh UUID) and releases the emitter's dedup entry when routing traversal
// finishes, even if a downstream handler panics. Every request must pass
// through it exactly once for the emitter's memory bound to hold.
type RequestScope struct {
	emitter *emitter.Emitter
}

// NewRequestScope creates the scoping middleware for the given emitter.
func NewRequestScope(em *emitter.Emitter) *RequestScope {
	return &RequestScope{emitter: em}
}

// Wrap wraps an HTTP handler with request scoping.
func (s *RequestScope) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		// Release must fire no matter how the traversal ends; a panic
		// continues up the chain after the entry is removed.
		defer s.emitter.RoutingCompleted(requestID)

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext extracts the scoped request ID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}
