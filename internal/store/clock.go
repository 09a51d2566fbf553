package store

import (
	"sync"
	"time"
)

// Clock hands out audit timestamps that never go backwards within one store
// instance, even if the wall clock is stepped. Values are truncated to
// microseconds so they round-trip through Postgres and SQLite unchanged.
//
// Safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock creates a Clock backed by the system wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockWith creates a Clock backed by now. Used by tests to pin or rewind time.
func NewClockWith(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current UTC time, or the previously returned value if the
// wall clock has moved backwards since.
func (c *Clock) Now() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Before(c.last) {
		t = c.last
	}
	c.last = t

	return t
}

// Observe raises the floor to t, typically the latest timestamp already
// persisted when a store is reopened.
func (c *Clock) Observe(t time.Time) {
	t = t.UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.After(c.last) {
		c.last = t
	}
}
