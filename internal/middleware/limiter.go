package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// KeyedLimiter hands out one token bucket per key (client IP or user id) and
// forgets keys that have been idle for half an hour.
type KeyedLimiter struct {
	limit rate.Limit
	burst int

	mu         sync.Mutex
	entries    map[string]*limiterEntry
	cleanupRun bool
	now        func() time.Time
}

func NewKeyedLimiter(limit rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limit:   limit,
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// PerMinute builds a limiter allowing n requests per minute per key.
func PerMinute(n, burst int) *KeyedLimiter {
	if n <= 0 {
		n = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return NewKeyedLimiter(rate.Every(time.Minute/time.Duration(n)), burst)
}

func (l *KeyedLimiter) Allow(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// Burst is the bucket size, reported in X-RateLimit-Limit.
func (l *KeyedLimiter) Burst() int {
	return l.burst
}

func (l *KeyedLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startCleanupOnce()

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastUse = l.now()
	return e.limiter
}

func (l *KeyedLimiter) startCleanupOnce() {
	if l.cleanupRun {
		return
	}
	l.cleanupRun = true
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			l.mu.Lock()
			now := l.now()
			for k, e := range l.entries {
				if now.Sub(e.lastUse) > limiterTTL {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		}
	}()
}
