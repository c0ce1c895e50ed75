// package ratelimit provides a fixed-window, per-key request limiter for public endpoints.
//
// It is a single-process guard meant to damp abuse, not a distributed quota.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// buckets beyond this count trigger a sweep of finished windows on the next new key
const pruneThreshold = 4096

// Result is the outcome of a single [Limiter.Take].
type Result struct {
	Limited    bool
	Remaining  int
	RetryAfter int // seconds left in the current window, at least 1
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in successive windows of fixed length.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int
	window  time.Duration
	now     func() time.Time
}

// Option configures a [Limiter].
type Option func(*Limiter)

// WithClock replaces [time.Now] as the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter allowing max requests per key per window.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		max:     max,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Take records one request for key and reports whether it exceeds the limit.
func (l *Limiter) Take(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		if !ok && len(l.buckets) >= pruneThreshold {
			l.prune(now)
		}
		b = &bucket{count: 1, resetAt: now.Add(l.window)}
		l.buckets[key] = b
		return Result{
			Limited:    false,
			Remaining:  max(0, l.max-1),
			RetryAfter: retryAfter(b.resetAt.Sub(now)),
		}
	}

	b.count++
	left := retryAfter(b.resetAt.Sub(now))
	if b.count > l.max {
		return Result{Limited: true, Remaining: 0, RetryAfter: left}
	}
	return Result{Limited: false, Remaining: l.max - b.count, RetryAfter: left}
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) prune(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}

func retryAfter(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
