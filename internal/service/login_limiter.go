package service

import (
	"sync"
	"time"
)

// LoginLimiterConfig tunes the failed login lockout.
type LoginLimiterConfig struct {
	MaxAttempts  int
	Lockout      time.Duration
	CleanupAge   time.Duration
	CleanupEvery int
}

type loginAttempt struct {
	count int
	first time.Time
	last  time.Time
}

// LoginLimiter counts failed logins per client and locks a client out once
// MaxAttempts failures are reached. State is kept in memory only.
type LoginLimiter struct {
	mu      sync.Mutex
	cfg     LoginLimiterConfig
	entries map[string]*loginAttempt
	calls   int
	now     func() time.Time
}

// NewLoginLimiter builds a limiter; zero values fall back to 5 attempts,
// a 15 minute lockout and an hourly purge checked every 100 calls.
// CleanupAge never drops below Lockout so a purge cannot lift a lockout early.
func NewLoginLimiter(cfg LoginLimiterConfig) *LoginLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 15 * time.Minute
	}
	if cfg.CleanupAge <= 0 {
		cfg.CleanupAge = time.Hour
	}
	if cfg.CleanupAge < cfg.Lockout {
		cfg.CleanupAge = cfg.Lockout
	}
	if cfg.CleanupEvery <= 0 {
		cfg.CleanupEvery = 100
	}
	return &LoginLimiter{cfg: cfg, entries: make(map[string]*loginAttempt), now: time.Now}
}

// Allow reports whether client may try to log in. When locked it returns the
// time left until the lockout ends.
func (l *LoginLimiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.tick(now)

	entry, ok := l.entries[client]
	if !ok || entry.count < l.cfg.MaxAttempts {
		return true, 0
	}
	elapsed := now.Sub(entry.last)
	if elapsed >= l.cfg.Lockout {
		delete(l.entries, client)
		return true, 0
	}
	return false, l.cfg.Lockout - elapsed
}

// Failure records a failed attempt for client.
func (l *LoginLimiter) Failure(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.tick(now)

	entry, ok := l.entries[client]
	if !ok {
		entry = &loginAttempt{first: now}
		l.entries[client] = entry
	}
	entry.count++
	entry.last = now
}

// Success clears the failures of client.
func (l *LoginLimiter) Success(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tick(l.now())
	delete(l.entries, client)
}

// Attempts returns the failure count of client and when its first failure
// was recorded. A client without failures reports zero values.
func (l *LoginLimiter) Attempts(client string) (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[client]
	if !ok {
		return 0, time.Time{}
	}
	return entry.count, entry.first
}

// Tracked returns the number of clients with recorded failures.
func (l *LoginLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// tick counts a call and purges stale entries every CleanupEvery calls.
// Callers hold mu.
func (l *LoginLimiter) tick(now time.Time) {
	l.calls++
	if l.calls%l.cfg.CleanupEvery != 0 {
		return
	}
	for client, entry := range l.entries {
		if now.Sub(entry.last) > l.cfg.CleanupAge {
			delete(l.entries, client)
		}
	}
}
