package service

import (
	"sync"
	"time"
)

// staleAfter is how long an idle bucket is kept before it is swept.
const staleAfter = 10 * time.Minute

// TokenBucket is an in-memory per-key rate limiter. It is safe for
// concurrent use. Idle buckets are swept during Allow, so no background
// goroutine is needed.
type TokenBucket struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens added per second
	capacity  float64
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket allows bursts of up to capacity calls per key, refilling
// at rate tokens per second.
func NewTokenBucket(rate, capacity float64) *TokenBucket {
	return newTokenBucket(rate, capacity, time.Now)
}

func newTokenBucket(rate, capacity float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		buckets:   make(map[string]*bucket),
		rate:      rate,
		capacity:  capacity,
		now:       now,
		lastSweep: now(),
	}
}

// Allow consumes one token for key and reports whether one was available.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if now.Sub(tb.lastSweep) >= staleAfter {
		tb.sweep(now)
	}

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, last: now}
		tb.buckets[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(b.tokens+elapsed*tb.rate, tb.capacity)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter is the wait until one token is available again for an
// exhausted key.
func (tb *TokenBucket) RetryAfter() time.Duration {
	if tb.rate <= 0 {
		return staleAfter
	}
	return time.Duration(float64(time.Second) / tb.rate)
}

// Len returns the number of tracked keys.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

func (tb *TokenBucket) sweep(now time.Time) {
	cutoff := now.Add(-staleAfter)
	for key, b := range tb.buckets {
		if b.last.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
	tb.lastSweep = now
}
