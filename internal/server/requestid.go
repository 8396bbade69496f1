package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDKey is the context key for request IDs
type contextKey string

const RequestIDKey contextKey = "request_id"

// requestIDPrefix matches the "req-" convention HandleChatCompletion used to
// mint its own ID under; unifying on it here means the ID a client sees in
// X-Request-ID is the same one that ends up as domain.UnifiedRequest.RequestID
// and the interaction-log row, instead of two independently generated UUIDs.
const requestIDPrefix = "req-"

// RequestIDMiddleware assigns the canonical ID for this request: stored in
// the context for GetRequestID, set as the X-Request-ID response header, and
// later carried into domain.UnifiedRequest by HandleChatCompletion so the
// dispatcher, the structured request log, and the sqlite interaction log all
// key off the same identifier.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDPrefix + uuid.New().String()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID RequestIDMiddleware assigned to ctx.
// Returns an empty string if no request ID is set, which HandleChatCompletion
// treats as "middleware absent" and falls back to minting its own.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
