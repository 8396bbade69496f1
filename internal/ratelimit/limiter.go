// Package ratelimit enforces the gateway's own per-API-key request budget,
// independent of any per-provider rate-limit command. Built on
// golang.org/x/time/rate, the token-bucket library already present in the
// pack's dependency graph (lucky-mandator-gocode-router's go.mod), applying
// its standard one-limiter-per-client idiom instead of the corpus's only
// other rate limiter (kommunication-aegis-ai-gateway's Redis-backed sliding
// window), which needs infrastructure this gateway doesn't otherwise use.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter is how long a key's bucket survives with no requests before
// cleanup reclaims it.
const staleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per API key. A zero-value RequestsPerSecond
// disables limiting entirely (Allow always returns true).
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
}

// New builds a Limiter from the configured rate and burst. rps <= 0 disables
// limiting.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

// Enabled reports whether this limiter enforces any limit.
func (l *Limiter) Enabled() bool {
	return l != nil && l.rps > 0
}

// Allow reports whether a request identified by key may proceed, consuming
// a token from that key's bucket if so.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// RetryAfter estimates the wait before key's bucket next admits a request,
// for use in a Retry-After response header.
func (l *Limiter) RetryAfter(key string) time.Duration {
	if !l.Enabled() {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return 0
	}
	reservation := b.limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}

// CleanupStale drops buckets for keys that haven't made a request in
// staleAfter, bounding memory in a long-running gateway with high key churn.
func (l *Limiter) CleanupStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleAfter {
			delete(l.buckets, key)
		}
	}
}

// RunCleanup calls CleanupStale on a fixed interval until stop is closed.
// cmd/gateway runs this in its own goroutine for the process lifetime,
// the same stop-channel shape internal/config.Watcher.Watch uses.
func (l *Limiter) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			l.CleanupStale(now)
		}
	}
}
