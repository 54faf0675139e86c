// Package requestid carries a per-operation correlation ID through contexts,
// outbound API calls and the dashboard server.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the HTTP header used to propagate request IDs.
const Header = "X-Request-ID"

type contextKey string

// Key is the context key for request IDs.
const Key = contextKey("request-id")

// New generates a fresh request ID.
func New() string {
	return uuid.New().String()
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, Key, id)
}

// FromContext extracts the request ID from the context.
// Returns empty string if not found.
func FromContext(ctx context.Context) string {
	if reqID, ok := ctx.Value(Key).(string); ok {
		return reqID
	}
	return ""
}

// Ensure returns ctx unchanged if it already carries a request ID, otherwise
// a copy carrying a newly generated one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := New()
	return WithRequestID(ctx, id), id
}

// Middleware generates or propagates request IDs.
// It checks for an existing X-Request-ID header and generates a new UUID if not present.
// The request ID is added to the response header and stored in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = New()
		}

		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
