package health

import (
	"errors"
	"testing"

	"github.com/relaywell/cligateway/internal/core/domain"
)

func TestClassifyOrderedRules(t *testing.T) {
	cases := map[string]domain.FailureKind{
		"unknown model: gpt-9":                    domain.FailureInvalidModel,
		"fallback model not found: m4":             domain.FailureConfig,
		"duplicate model id: m1":                   domain.FailureConfig,
		"insufficient_quota for this account":      domain.FailureQuotaExhausted,
		"resource_exhausted: capacity reached":     domain.FailureCapacityExhausted,
		"HTTP 429 Too Many Requests":               domain.FailureRateLimited,
		"request timed out after 30s":              domain.FailureTimeout,
		"401 Unauthorized: invalid api key":        domain.FailureAuth,
		"provider command exited with code 1":      domain.FailureProviderExit,
		"something totally unrecognized happened":  domain.FailureUnknown,
	}
	for msg, want := range cases {
		got := Classify(errors.New(msg))
		if got != want {
			t.Errorf("Classify(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestClassifyQuotaBeatsTimeoutOnOverlap(t *testing.T) {
	// "timeout" appears inside a message that's really about quota; quota
	// is checked first per the fixed evaluation order.
	got := Classify(errors.New("quota exceeded, retry after timeout window"))
	if got != domain.FailureQuotaExhausted {
		t.Fatalf("got %q, want quota_exhausted", got)
	}
}

func TestClassifyNilError(t *testing.T) {
	if got := Classify(nil); got != domain.FailureUnknown {
		t.Fatalf("got %q", got)
	}
}
