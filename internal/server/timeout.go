package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware enforces a wall-clock budget across an entire
// /v1/chat/completions call, spanning every provider the dispatcher's
// fallback chain tries for that request. It is independent of any single
// provider's own domain.CommandSpec.TimeoutMs, which may be longer: that timeout
// bounds one child process invocation, while this one bounds the whole HTTP
// request including however many fallback attempts the dispatcher makes
// within it. If a request exceeds the specified timeout, the context is
// cancelled. Note: this does not forcibly terminate the handler, it relies on
// the dispatcher and the executor it calls checking context.Done() for
// cooperative cancellation.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
