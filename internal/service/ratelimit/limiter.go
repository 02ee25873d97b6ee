package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a per-source token bucket guarding the webhook intake. Each
// source address gets its own bucket with the configured sustained rate and
// burst capacity. A zero rate disables limiting entirely.
type Limiter struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// Idle buckets older than this are dropped on the next sweep through the
// map, keeping memory bounded with many distinct sources.
const idleTTL = 10 * time.Minute

// New creates a limiter allowing rate requests per second with the given
// burst per source. rate <= 0 disables limiting.
func New(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one request from source may proceed.
func (l *Limiter) Allow(source string) bool {
	if l.rate <= 0 {
		return true
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[source]
	if !ok {
		if len(l.buckets) > 1024 {
			l.purge(now)
		}
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[source] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// purge drops buckets idle past the TTL. Caller holds the lock.
func (l *Limiter) purge(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.last) > idleTTL {
			delete(l.buckets, k)
		}
	}
}

// SetClock overrides the limiter's clock; tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}
