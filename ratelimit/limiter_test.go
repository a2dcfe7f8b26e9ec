package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	l := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		ok, end := l.Allow("writes", "profile:a", 3, time.Minute)
		assert.True(t, ok)
		assert.Equal(t, clock.Now().Add(time.Minute), end)
	}

	ok, end := l.Allow("writes", "profile:a", 3, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, time.Date(2026, 10, 15, 12, 1, 0, 0, time.UTC), end)
	assert.Equal(t, 0, l.Remaining("writes", "profile:a", 3))
}

func TestAllowResetsAtWindowEnd(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	l := New(WithClock(clock.Now))

	ok, _ := l.Allow("writes", "profile:a", 1, time.Minute)
	assert.True(t, ok)

	clock.Advance(time.Minute - time.Millisecond)
	ok, _ = l.Allow("writes", "profile:a", 1, time.Minute)
	assert.False(t, ok)

	clock.Advance(time.Millisecond)
	ok, end := l.Allow("writes", "profile:a", 1, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, clock.Now().Add(time.Minute), end)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()

	ok, _ := l.Allow("writes", "profile:a", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = l.Allow("writes", "profile:b", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = l.Allow("ratings", "profile:a", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = l.Allow("writes", "profile:a", 1, time.Minute)
	assert.False(t, ok)
}

func TestAllowDisabled(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		ok, _ := l.Allow("writes", "profile:a", 0, time.Minute)
		assert.True(t, ok)
	}
	assert.Equal(t, 0, l.Len())
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	l := New(WithClock(clock.Now))

	l.Allow("writes", "profile:a", 5, time.Minute)
	l.Allow("writes", "profile:b", 5, time.Hour)
	assert.Equal(t, 2, l.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 5, l.Remaining("writes", "profile:a", 5))
	assert.Equal(t, 4, l.Remaining("writes", "profile:b", 5))
}

func TestAllowConcurrent(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("writes", "profile:a", 10, time.Hour); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
