package engine

import "sync/atomic"

// Clock is the monotonic step counter for evaluation traces.
//
// Steps are numbered from 1 in execution order. Never use wall-clock time
// to order steps.
//
// Thread-safety: Clock uses atomic operations, although the engine only
// advances it from the evaluation goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new step number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued step number, or 0 before the first step.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock so the next step is 1 again.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
