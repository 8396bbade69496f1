package auth

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the OpenAI wire error envelope so a rejected request
// looks the same shape as any other error this gateway returns.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeAuthError(w http.ResponseWriter, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Type = "authentication_error"
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(body)
}

// Middleware authenticates requests via a Bearer API key. If authenticator
// is nil or has no configured keys, it passes every request through
// unchanged.
func Middleware(authenticator *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !authenticator.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := ExtractAPIKey(r)
			if err != nil {
				writeAuthError(w, err.Error())
				return
			}
			if !authenticator.ValidateAPIKey(apiKey) {
				writeAuthError(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
