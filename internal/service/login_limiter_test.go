package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(cfg LoginLimiterConfig) (*LoginLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	limiter := NewLoginLimiter(cfg)
	limiter.now = clock.Now
	return limiter, clock
}

func TestLoginLimiterLocksAfterMaxFailures(t *testing.T) {
	limiter, clock := newTestLimiter(LoginLimiterConfig{})

	for i := 0; i < 4; i++ {
		limiter.Failure("10.0.0.1")
		ok, _ := limiter.Allow("10.0.0.1")
		assert.True(t, ok, "attempt %d", i+1)
	}
	limiter.Failure("10.0.0.1")

	ok, retry := limiter.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 15*time.Minute, retry)

	ok, _ = limiter.Allow("10.0.0.2")
	assert.True(t, ok, "other clients are unaffected")

	clock.Advance(10 * time.Minute)
	ok, retry = limiter.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, retry)

	clock.Advance(5 * time.Minute)
	ok, _ = limiter.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Zero(t, limiter.Tracked())
}

func TestLoginLimiterSuccessResets(t *testing.T) {
	limiter, _ := newTestLimiter(LoginLimiterConfig{MaxAttempts: 2})

	limiter.Failure("a")
	limiter.Success("a")
	limiter.Failure("a")

	ok, _ := limiter.Allow("a")
	assert.True(t, ok)
}

func TestLoginLimiterPurgesStaleEntries(t *testing.T) {
	limiter, clock := newTestLimiter(LoginLimiterConfig{CleanupEvery: 10})

	limiter.Failure("stale")
	clock.Advance(2 * time.Hour)
	limiter.Failure("fresh")
	assert.Equal(t, 2, limiter.Tracked())

	for i := 0; i < 8; i++ {
		limiter.Allow("fresh")
	}
	assert.Equal(t, 1, limiter.Tracked())
}

func TestLoginLimiterPurgeKeepsLockedClients(t *testing.T) {
	limiter, clock := newTestLimiter(LoginLimiterConfig{
		MaxAttempts:  1,
		Lockout:      2 * time.Hour,
		CleanupAge:   30 * time.Minute,
		CleanupEvery: 2,
	})

	limiter.Failure("a")
	clock.Advance(time.Hour)
	limiter.Allow("b")
	assert.Equal(t, 1, limiter.Tracked())

	ok, wait := limiter.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, time.Hour, wait)
}

func TestLoginLimiterAttempts(t *testing.T) {
	limiter, clock := newTestLimiter(LoginLimiterConfig{})
	start := clock.now

	count, first := limiter.Attempts("a")
	assert.Zero(t, count)
	assert.True(t, first.IsZero())

	limiter.Failure("a")
	clock.Advance(time.Minute)
	limiter.Failure("a")

	count, first = limiter.Attempts("a")
	assert.Equal(t, 2, count)
	assert.Equal(t, start, first)
}

func TestLoginLimiterConcurrentUse(t *testing.T) {
	limiter, _ := newTestLimiter(LoginLimiterConfig{MaxAttempts: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			client := fmt.Sprintf("client-%d", n%4)
			for j := 0; j < 50; j++ {
				limiter.Failure(client)
				limiter.Allow(client)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, limiter.Tracked())
}
