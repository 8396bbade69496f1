package health

import (
	"math"
	"time"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// ModelSnapshot is a coherent, point-in-time view of one model's health,
// read entirely under its stripe's lock.
type ModelSnapshot struct {
	ModelID string

	Attempts  int64
	Successes int64
	Failures  int64

	FailuresByKind map[domain.FailureKind]int64

	ConsecutiveFailures          int
	ConsecutiveRateLimited       int
	ConsecutiveCapacityExhausted int
	ConsecutiveQuotaExhausted    int

	AverageAttemptDuration  time.Duration
	AverageSuccessDuration  time.Duration

	LastAttemptAt      *time.Time
	LastSuccessAt       *time.Time
	LastFailureAt       *time.Time
	LastFailureKind     domain.FailureKind
	LastFailureMessage  string

	FallbackInCount  int64
	FallbackOutCount int64

	CooldownRemainingSeconds int
	SuggestedState           string
}

// Snapshot is the process-wide view: when the tracker started, total
// fallback transitions, and every model's individual snapshot.
type Snapshot struct {
	StartedAt           time.Time
	FallbackTransitions int64
	Models              []ModelSnapshot
}

// Snapshot returns a coherent view of every model the tracker has seen.
func (t *Tracker) Snapshot() Snapshot {
	var models []ModelSnapshot
	for _, s := range t.stripes {
		s.mu.Lock()
		for id := range s.byModel {
			models = append(models, snapshotLocked(id, s.byModel[id]))
		}
		s.mu.Unlock()
	}
	return Snapshot{
		StartedAt:           t.startedAt,
		FallbackTransitions: t.fallbackTransitions.Load(),
		Models:              models,
	}
}

// SnapshotModel returns one model's snapshot, or ok=false if the tracker
// has never seen that model id.
func (t *Tracker) SnapshotModel(modelID string) (ModelSnapshot, bool) {
	s := t.stripeFor(modelID)
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byModel[modelID]
	if !ok {
		return ModelSnapshot{}, false
	}
	return snapshotLocked(modelID, st), true
}

func snapshotLocked(modelID string, st *stats) ModelSnapshot {
	snap := ModelSnapshot{
		ModelID:                      modelID,
		Attempts:                     st.attempts,
		Successes:                    st.successes,
		Failures:                     st.failures,
		FailuresByKind:               copyFailuresByKind(st.failuresByKind),
		ConsecutiveFailures:          st.consecutiveFailures,
		ConsecutiveRateLimited:       st.consecutiveRateLimited,
		ConsecutiveCapacityExhausted: st.consecutiveCapacityExhausted,
		ConsecutiveQuotaExhausted:    st.consecutiveQuotaExhausted,
		LastFailureKind:              st.lastFailureKind,
		LastFailureMessage:           st.lastFailureMessage,
		FallbackInCount:              st.fallbackInCount,
		FallbackOutCount:             st.fallbackOutCount,
	}

	if st.attempts > 0 {
		snap.AverageAttemptDuration = st.attemptDurationTotal / time.Duration(st.attempts)
	}
	if st.successes > 0 {
		snap.AverageSuccessDuration = st.successDurationTotal / time.Duration(st.successes)
	}
	if !st.lastAttemptAt.IsZero() {
		v := st.lastAttemptAt
		snap.LastAttemptAt = &v
	}
	if !st.lastSuccessAt.IsZero() {
		v := st.lastSuccessAt
		snap.LastSuccessAt = &v
	}
	if !st.lastFailureAt.IsZero() {
		v := st.lastFailureAt
		snap.LastFailureAt = &v
	}

	snap.CooldownRemainingSeconds = cooldownRemaining(st)
	snap.SuggestedState = suggestedState(snap)

	return snap
}

func copyFailuresByKind(m map[domain.FailureKind]int64) map[domain.FailureKind]int64 {
	out := make(map[domain.FailureKind]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// cooldownRemaining computes the advisory remaining cooldown in seconds,
// per spec §4.7. A success recorded after the last failure ends the
// cooldown.
func cooldownRemaining(st *stats) int {
	if st.lastFailureAt.IsZero() || st.lastSuccessAt.After(st.lastFailureAt) {
		return 0
	}
	base, ok := baseCooldownSeconds[st.lastFailureKind]
	if !ok || base == 0 {
		return 0
	}

	mult := clampMultiplier(consecutiveCounterFor(st, st.lastFailureKind))
	cooldownMs := int64(base) * 1000 * int64(mult)
	elapsedMs := time.Since(st.lastFailureAt).Milliseconds()
	remainingMs := cooldownMs - elapsedMs
	if remainingMs <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remainingMs) / 1000.0))
}

// consecutiveCounterFor returns the consecutive-failure counter that
// applies to kind: the kind-specific counter for the three tracked kinds,
// otherwise the total consecutive-failure counter.
func consecutiveCounterFor(st *stats, kind domain.FailureKind) int {
	switch kind {
	case domain.FailureRateLimited:
		return st.consecutiveRateLimited
	case domain.FailureCapacityExhausted:
		return st.consecutiveCapacityExhausted
	case domain.FailureQuotaExhausted:
		return st.consecutiveQuotaExhausted
	default:
		return st.consecutiveFailures
	}
}

// suggestedState derives an operator-facing state from a snapshot's
// cooldown and failure rate, per spec §4.7.
func suggestedState(snap ModelSnapshot) string {
	if snap.CooldownRemainingSeconds > 0 {
		switch snap.LastFailureKind {
		case domain.FailureRateLimited:
			return "rate_limited"
		case domain.FailureCapacityExhausted:
			return "capacity_exhausted"
		case domain.FailureQuotaExhausted:
			return "quota_exhausted"
		case domain.FailureAuth:
			return "auth_blocked"
		default:
			return "cooldown"
		}
	}

	if snap.Attempts >= 6 {
		failureRate := float64(snap.Failures) / float64(snap.Attempts)
		if failureRate >= 0.5 {
			return "degraded"
		}
	}

	return "healthy"
}
