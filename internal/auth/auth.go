// Package auth validates the gateway's own inbound API key, independent of
// the per-provider auth commands in internal/provider. Grounded on the
// teacher's internal/auth.Authenticator (SHA-256 digest + constant-time
// compare), flattened from a keyhash->tenant map to a flat hash set since
// this gateway has no tenant concept, only a single shared key list.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator holds the configured set of accepted API key hashes. A nil
// Authenticator, or one built from an empty hash list, means auth is
// disabled: every request is accepted.
type Authenticator struct {
	hashes map[string]struct{}
}

// NewAuthenticator builds an Authenticator from the SHA-256 hex digests
// configured in AuthSettings.APIKeyHashes.
func NewAuthenticator(hashes []string) *Authenticator {
	a := &Authenticator{hashes: make(map[string]struct{}, len(hashes))}
	for _, h := range hashes {
		a.hashes[strings.ToLower(h)] = struct{}{}
	}
	return a
}

// Enabled reports whether any key hashes are configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.hashes) > 0
}

// HashAPIKey returns the lowercase hex SHA-256 digest of an API key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// ValidateAPIKey reports whether apiKey's digest is in the configured set.
// Uses a constant-time comparison against every configured hash so lookup
// timing doesn't leak which prefix of a guessed key matched.
func (a *Authenticator) ValidateAPIKey(apiKey string) bool {
	if !a.Enabled() {
		return true
	}
	digest := HashAPIKey(apiKey)
	ok := false
	for h := range a.hashes {
		if subtle.ConstantTimeCompare([]byte(digest), []byte(h)) == 1 {
			ok = true
		}
	}
	return ok
}

// ExtractAPIKey pulls the bearer token out of a request's Authorization
// header.
func ExtractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	if parts[1] == "" {
		return "", fmt.Errorf("empty API key")
	}
	return parts[1], nil
}
