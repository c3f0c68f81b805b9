package ledger

import (
	"sync"
	"time"
)

// ManualClock is a Clock that only moves when told to. Useful for tests.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock starts a manual clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UnixMilli()}
}

// Now returns the current manual reading in milliseconds.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d.Milliseconds()
}
