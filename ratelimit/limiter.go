// Package ratelimit holds per-process fixed-window counters keyed by
// (limiter name, identity).
//
// State lives in memory only. Replicated deployments need a shared counter
// store; until then each replica enforces its own window.
package ratelimit

import (
	"sync"
	"time"
)

type key struct {
	name     string
	identity string
}

type bucket struct {
	count     int
	windowEnd time.Time
}

// Limiter is safe for concurrent use. Counts under contention are exact per
// call but windows are not coordinated across processes.
type Limiter struct {
	mu      sync.Mutex
	buckets map[key]*bucket

	now func() time.Time
}

type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[key]*bucket),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one unit from the (name, identity) window. When the window
// is exhausted it returns false and the time the window resets. A limit or
// window <= 0 disables the limiter.
func (l *Limiter) Allow(name, identity string, limit int, window time.Duration) (bool, time.Time) {
	if limit <= 0 || window <= 0 {
		return true, time.Time{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key{name: name, identity: identity}
	b, ok := l.buckets[k]
	if !ok || !now.Before(b.windowEnd) {
		b = &bucket{windowEnd: now.Add(window)}
		l.buckets[k] = b
	}

	if b.count >= limit {
		return false, b.windowEnd
	}
	b.count++
	return true, b.windowEnd
}

// Remaining reports how many units are left in the current window without
// consuming one.
func (l *Limiter) Remaining(name, identity string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key{name: name, identity: identity}]
	if !ok || !l.now().Before(b.windowEnd) {
		return limit
	}
	if b.count >= limit {
		return 0
	}
	return limit - b.count
}

// Sweep drops expired windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, b := range l.buckets {
		if !now.Before(b.windowEnd) {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
