// Package health tracks per-model attempt/success/failure counters, failure
// classification, and the cooldown/suggested-state advisory the dispatcher
// and admin surface use to steer traffic away from degraded models.
package health

import (
	"strings"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// Classify maps an error's message (lowercased) to a failure kind. Rules are
// evaluated in a fixed order, first match wins, preserving the overlap
// resolution the spec's source carried (e.g. "timeout" can appear inside a
// longer quota-related message; quota is checked first).
func Classify(err error) domain.FailureKind {
	if err == nil {
		return domain.FailureUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "unknown model:"):
		return domain.FailureInvalidModel
	case containsAny(msg, "fallback model not found", "duplicate model id", "does not expose model"):
		return domain.FailureConfig
	case containsAny(msg, "insufficient_quota", "quota", "billing", "credit balance", "out of credits"):
		return domain.FailureQuotaExhausted
	case containsAny(msg, "resource_exhausted", "capacity", "model exhausted", "overloaded", "no available", "temporarily unavailable"):
		return domain.FailureCapacityExhausted
	case containsAny(msg, "rate limit", "too many requests", "status code: 429", "http 429", "retry later"):
		return domain.FailureRateLimited
	case containsAny(msg, "timed out", "timeout"):
		return domain.FailureTimeout
	case containsAny(msg, "unauthorized", "forbidden", "invalid api key", "authentication", "not authenticated", "permission denied", "access denied"):
		return domain.FailureAuth
	case strings.Contains(msg, "provider command"):
		return domain.FailureProviderExit
	default:
		return domain.FailureUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// baseCooldownSeconds is the per-kind cooldown table from spec §4.7. Kinds
// absent from the table cool down immediately (base 0).
var baseCooldownSeconds = map[domain.FailureKind]int{
	domain.FailureRateLimited:       60,
	domain.FailureCapacityExhausted: 120,
	domain.FailureQuotaExhausted:    3600,
	domain.FailureTimeout:           30,
	domain.FailureAuth:              600,
}

func clampMultiplier(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
