package testutil

import "sync"

// ManualClock is a test clock that only moves when told to.
//
// It satisfies anim.Clock, so managers driven by a ManualClock produce the
// same frames on every run. Time never goes backwards: Set with an earlier
// value is ignored.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

// NewManualClock creates a clock reading start seconds.
func NewManualClock(start float64) *ManualClock {
	return &ManualClock{now: start}
}

// Seconds returns the current reading.
func (c *ManualClock) Seconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d seconds and returns the new reading.
// Negative durations are ignored.
func (c *ManualClock) Advance(d float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
	return c.now
}

// Set jumps the clock to t if t is not earlier than the current reading.
func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}

// Reset rewinds the clock to 0 for test reuse.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}
