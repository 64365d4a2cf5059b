// Package ratelimit implements the fixed-size sliding window counter that
// guards the title-fetch proxy.
package ratelimit

import (
	"sync"
	"time"
)

// UnknownClient is the shared bucket for requests without a usable client
// identifier. All unidentified clients drain one budget; a coarse grain
// accepted as a tradeoff.
const UnknownClient = "unknown"

// Limiter counts requests per client identifier over a sliding window.
// A request is admitted while fewer than limit requests landed inside the
// window; admitted requests are recorded, rejected ones are not.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
}

// New creates a limiter admitting limit requests per identifier per window.
func New(limit int, window time.Duration) *Limiter {
	return NewWithClock(limit, window, time.Now)
}

// NewWithClock creates a limiter with an injected clock for tests.
func NewWithClock(limit int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    now,
	}
}

// Allow records and admits the request when the identifier is within
// budget, and rejects it without recording otherwise. Empty identifiers
// fall into the shared UnknownClient bucket.
func (l *Limiter) Allow(id string) bool {
	if id == "" {
		id = UnknownClient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[id][:0]
	for _, ts := range l.hits[id] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.hits[id] = recent
		l.sweepLocked(now, cutoff)
		return false
	}

	l.hits[id] = append(recent, now)
	l.sweepLocked(now, cutoff)
	return true
}

// RetryAfter is the retry hint handed to rejected clients.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}

// Keys returns the number of identifiers currently tracked.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// sweepLocked drops identifiers whose newest hit fell out of the window,
// at most once per window. Keeps key cardinality bounded by active
// clients instead of growing for the life of the process.
func (l *Limiter) sweepLocked(now time.Time, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	for id, stamps := range l.hits {
		idle := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.hits, id)
		}
	}
}
