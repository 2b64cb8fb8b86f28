package store

import "sync/atomic"

// clock is the monotonic logical clock that stamps every committed write.
//
// All local ordering (change feed delivery, push checkpoints) uses seq,
// never wall time: the kiosk's clock may be skewed, and replication must
// replay identically regardless of when writes happened.
//
// Safe for concurrent use, though the store's writer lock means only one
// goroutine calls next at a time in practice.
type clock struct {
	seq atomic.Int64
}

// newClockAt creates a clock resuming from a known position, used on open
// to continue from MAX(seq) in the database.
func newClockAt(start int64) *clock {
	c := &clock{}
	c.seq.Store(start)
	return c
}

// next returns the next sequence number and advances the clock.
func (c *clock) next() int64 {
	return c.seq.Add(1)
}

// current returns the clock position without advancing it.
func (c *clock) current() int64 {
	return c.seq.Load()
}
