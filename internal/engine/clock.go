package engine

import (
	"sync"
	"time"
)

// Clock stamps change events with wall-clock milliseconds.
// Timestamps are informational (debugging, last-write-wins tie breaking by
// peers); event ordering within a store is by application order, never by
// timestamp.
type Clock interface {
	Now() int64
}

// wallClock is a monotonic-guarded wall clock: it never returns a value
// less than or equal to its previous one, even if the system clock steps
// backwards or two events land in the same millisecond.
type wallClock struct {
	mu   sync.Mutex
	last int64
}

// NewWallClock creates the production clock.
func NewWallClock() Clock {
	return &wallClock{}
}

// Now returns wall-clock milliseconds, strictly increasing per call.
func (c *wallClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= c.last {
		c.last++
		return c.last
	}
	c.last = now
	return now
}
