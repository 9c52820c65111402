// Package testutil provides deterministic stand-ins for the engine's
// time and identity collaborators.
package testutil

import "sync"

// Clock is a deterministic clock for tests: every Now call returns the
// current reading and then advances it by a fixed step, so two changes in
// a row never share a timestamp.
type Clock struct {
	mu   sync.Mutex
	now  int64
	step int64
}

// NewClock returns a Clock starting at start that advances by step
// milliseconds per reading.
func NewClock(start, step int64) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current reading and advances the clock.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now += c.step
	return t
}

// Advance moves the clock forward by d milliseconds without producing a
// reading.
func (c *Clock) Advance(d int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}
