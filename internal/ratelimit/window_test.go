package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *testClock) {
	clock := &testClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(limit, window, clock.Now), clock
}

func TestLimiter_AdmitsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(10, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("203.0.113.7"), "request %d should be admitted", i+1)
	}
	assert.False(t, l.Allow("203.0.113.7"), "request 11 should be rejected")
}

func TestLimiter_SlidingWindowAdmitsAfterExpiry(t *testing.T) {
	l, clock := newTestLimiter(10, time.Minute)

	for i := 0; i < 10; i++ {
		l.Allow("client")
	}
	assert.False(t, l.Allow("client"))

	clock.Advance(time.Minute + time.Second)
	assert.True(t, l.Allow("client"), "fresh window should admit again")
}

func TestLimiter_RejectionsNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.Allow("client")
	clock.Advance(30 * time.Second)
	l.Allow("client")

	// Hammering while limited must not extend the lockout.
	for i := 0; i < 5; i++ {
		assert.False(t, l.Allow("client"))
	}

	// The first hit leaves the window 31s after it landed.
	clock.Advance(31 * time.Second)
	assert.True(t, l.Allow("client"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow("alpha"))
	assert.False(t, l.Allow("alpha"))
	assert.True(t, l.Allow("beta"))
}

func TestLimiter_EmptyIdentifierSharesUnknownBucket(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow(""))
	assert.False(t, l.Allow(UnknownClient))
}

func TestLimiter_RetryAfterIsWindow(t *testing.T) {
	l, _ := newTestLimiter(10, time.Minute)
	assert.Equal(t, time.Minute, l.RetryAfter())
}

func TestLimiter_SweepDropsIdleKeys(t *testing.T) {
	l, clock := newTestLimiter(10, time.Minute)

	for i := 0; i < 50; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	assert.Equal(t, 50, l.Keys())

	clock.Advance(2 * time.Minute)
	l.Allow("fresh-client")
	// One more call after the sweep interval passes to trigger eviction.
	clock.Advance(2 * time.Minute)
	l.Allow("fresh-client")

	assert.LessOrEqual(t, l.Keys(), 2, "idle keys should be swept")
}
