package engine

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical counter.
//
// The engine keeps two: one numbers processing cycles, the other stamps
// firings with a strictly increasing seq so the firing log has a total
// order that does not depend on wall-clock resolution.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific value.
// Used to resume firing seq numbers after the last persisted firing.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource supplies the evaluation instant for a cycle.
// Overdue detection and set_due_date_days both read it once per cycle.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the wall clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time {
	return time.Now()
}

// TimeFunc adapts a plain function to TimeSource.
type TimeFunc func() time.Time

// Now calls f.
func (f TimeFunc) Now() time.Time {
	return f()
}
