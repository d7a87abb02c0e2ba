package refresh

import (
	"sync/atomic"
	"time"
)

// Clock supplies monotonic milliseconds.
type Clock interface {
	NowMillis() int64
}

// MonotonicClock counts milliseconds since it was created.
// time.Since reads the monotonic clock, so wall-clock jumps do not affect it.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock creates a clock starting at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMillis returns milliseconds since the clock was created.
func (c *MonotonicClock) NowMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// ManualClock is a Clock advanced explicitly. It is used by tests and by
// replay, where time is simulated.
type ManualClock struct {
	now atomic.Int64
}

// NowMillis returns the current simulated time.
func (c *ManualClock) NowMillis() int64 {
	return c.now.Load()
}

// Set sets the simulated time.
func (c *ManualClock) Set(ms int64) {
	c.now.Store(ms)
}

// Advance moves the simulated time forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now.Add(d.Milliseconds())
}
