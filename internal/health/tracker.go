package health

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// numStripes is the number of independent lock stripes the per-model stats
// map is spread across. Each model hashes to exactly one stripe, so
// concurrent updates to different models rarely contend.
const numStripes = 32

// failureRingCap bounds the global recent-failures ring, per spec §4.7.
const failureRingCap = 200

// FailureEvent is one entry in the global failure ring, used for operator
// diagnostics beyond the per-model summary counters.
type FailureEvent struct {
	ModelID    string
	ProviderID string
	Kind       domain.FailureKind
	Message    string
	At         time.Time
}

// stats is one model's mutable counters. Every field is guarded by the
// mutex of the stripe it lives in.
type stats struct {
	attempts  int64
	successes int64
	failures  int64

	failuresByKind map[domain.FailureKind]int64

	consecutiveFailures            int
	consecutiveRateLimited         int
	consecutiveCapacityExhausted   int
	consecutiveQuotaExhausted      int

	attemptDurationTotal  time.Duration
	successDurationTotal  time.Duration

	lastAttemptAt      time.Time
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastFailureKind     domain.FailureKind
	lastFailureMessage  string

	fallbackInCount  int64
	fallbackOutCount int64
}

type stripe struct {
	mu      sync.Mutex
	byModel map[string]*stats
}

// Tracker is the process-wide model-health state. Construct once per
// process; safe for concurrent use from every in-flight runModel call.
type Tracker struct {
	startedAt           time.Time
	stripes             [numStripes]*stripe
	fallbackTransitions atomic.Int64

	failureRingMu sync.Mutex
	failureRing   []FailureEvent
}

// NewTracker constructs a tracker, pre-registering the given model IDs
// (the registry's full set, known immutably at construction) so that the
// common case never needs the lazy-create path.
func NewTracker(modelIDs []string) *Tracker {
	t := &Tracker{startedAt: time.Now()}
	for i := range t.stripes {
		t.stripes[i] = &stripe{byModel: make(map[string]*stats)}
	}
	for _, id := range modelIDs {
		t.stripeFor(id).byModel[id] = newStats()
	}
	return t
}

func newStats() *stats {
	return &stats{failuresByKind: make(map[domain.FailureKind]int64)}
}

func (t *Tracker) stripeFor(modelID string) *stripe {
	idx := xxhash.Sum64String(modelID) % numStripes
	return t.stripes[idx]
}

// RecordAttempt marks the start of one invocation against modelID.
func (t *Tracker) RecordAttempt(modelID string) {
	s := t.stripeFor(modelID)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := t.lockedGetOrCreate(s, modelID)
	st.attempts++
	st.lastAttemptAt = time.Now()
}

// RecordSuccess marks modelID's invocation as having completed normally.
func (t *Tracker) RecordSuccess(modelID string, duration time.Duration) {
	s := t.stripeFor(modelID)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := t.lockedGetOrCreate(s, modelID)
	st.successes++
	st.successDurationTotal += duration
	st.attemptDurationTotal += duration
	st.lastSuccessAt = time.Now()
	st.consecutiveFailures = 0
	st.consecutiveRateLimited = 0
	st.consecutiveCapacityExhausted = 0
	st.consecutiveQuotaExhausted = 0
}

// RecordFailure classifies err, records it against modelID, and pushes it
// onto the global failure ring. Returns the classified kind so the
// dispatcher can choose the next fallback.
func (t *Tracker) RecordFailure(modelID, providerID string, err error, duration time.Duration) domain.FailureKind {
	kind := Classify(err)

	s := t.stripeFor(modelID)
	s.mu.Lock()
	st := t.lockedGetOrCreate(s, modelID)
	st.failures++
	st.failuresByKind[kind]++
	st.attemptDurationTotal += duration
	st.consecutiveFailures++

	switch kind {
	case domain.FailureRateLimited:
		st.consecutiveRateLimited++
		st.consecutiveCapacityExhausted = 0
		st.consecutiveQuotaExhausted = 0
	case domain.FailureCapacityExhausted:
		st.consecutiveCapacityExhausted++
		st.consecutiveRateLimited = 0
		st.consecutiveQuotaExhausted = 0
	case domain.FailureQuotaExhausted:
		st.consecutiveQuotaExhausted++
		st.consecutiveRateLimited = 0
		st.consecutiveCapacityExhausted = 0
	default:
		st.consecutiveRateLimited = 0
		st.consecutiveCapacityExhausted = 0
		st.consecutiveQuotaExhausted = 0
	}

	msg := truncateMessage(err.Error(), 1200)
	st.lastFailureAt = time.Now()
	st.lastFailureKind = kind
	st.lastFailureMessage = msg
	s.mu.Unlock()

	t.pushFailureEvent(FailureEvent{
		ModelID:    modelID,
		ProviderID: providerID,
		Kind:       kind,
		Message:    msg,
		At:         time.Now(),
	})

	return kind
}

// RecordFallback records a chain transition from one model to another.
func (t *Tracker) RecordFallback(from, to string) {
	fromStripe := t.stripeFor(from)
	fromStripe.mu.Lock()
	t.lockedGetOrCreate(fromStripe, from).fallbackOutCount++
	fromStripe.mu.Unlock()

	toStripe := t.stripeFor(to)
	toStripe.mu.Lock()
	t.lockedGetOrCreate(toStripe, to).fallbackInCount++
	toStripe.mu.Unlock()

	t.fallbackTransitions.Add(1)
}

// lockedGetOrCreate is getOrCreate's body, for callers that already hold
// the stripe's lock (avoids a second lock/unlock round trip).
func (t *Tracker) lockedGetOrCreate(s *stripe, modelID string) *stats {
	st, ok := s.byModel[modelID]
	if !ok {
		st = newStats()
		s.byModel[modelID] = st
	}
	return st
}

func (t *Tracker) pushFailureEvent(ev FailureEvent) {
	t.failureRingMu.Lock()
	defer t.failureRingMu.Unlock()
	t.failureRing = append(t.failureRing, ev)
	if len(t.failureRing) > failureRingCap {
		t.failureRing = t.failureRing[len(t.failureRing)-failureRingCap:]
	}
}

// RecentFailures returns a defensive copy of the global failure ring,
// oldest first.
func (t *Tracker) RecentFailures() []FailureEvent {
	t.failureRingMu.Lock()
	defer t.failureRingMu.Unlock()
	out := make([]FailureEvent, len(t.failureRing))
	copy(out, t.failureRing)
	return out
}

func truncateMessage(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
