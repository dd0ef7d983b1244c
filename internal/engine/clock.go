package engine

import "sync/atomic"

// SeqClock is the logical clock used to stamp actions.
// Implemented by *Clock and by testutil.DeterministicClock.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock.
//
// Every dispatched action is stamped with a strictly increasing seq from
// this clock, so journal order and replay order are identical.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although only the Run goroutine calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that continues after start.
// Used to resume numbering after the last journaled action.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
