package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/relaywell/cligateway/internal/auth"
)

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeRateLimitError(w http.ResponseWriter, retrySeconds int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Type = "rate_limit_error"
	if retrySeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(body)
}

// Middleware enforces limiter's per-key budget, keyed by the request's
// bearer API key (or remote address, when the request carries no bearer
// key; with auth enabled such requests are rejected before this). If limiter is
// disabled it passes every request through unchanged.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !limiter.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r)
			if !limiter.Allow(key) {
				retry := limiter.RetryAfter(key)
				writeRateLimitError(w, int(retry.Seconds())+1, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestKey(r *http.Request) string {
	if apiKey, err := auth.ExtractAPIKey(r); err == nil {
		return apiKey
	}
	return r.RemoteAddr
}
