package oplog

import "sync/atomic"

// Clock hands out strictly increasing optimes within one term.
//
// The timestamp is packed as secs<<32 | inc, so Next advances the increment
// and carries into seconds on overflow.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	term int64
	ts   atomic.Uint64
}

// NewClock creates a clock for term whose first optime is Timestamp(0, 1).
func NewClock(term int64) *Clock {
	return &Clock{term: term}
}

// NewClockAfter creates a clock that continues after last.
// Used to resume appending after the newest stored record.
func NewClockAfter(last OpTime) *Clock {
	c := &Clock{term: last.Term}
	c.ts.Store(uint64(last.TS.T)<<32 | uint64(last.TS.I))
	return c
}

// Next returns the next optime.
func (c *Clock) Next() OpTime {
	v := c.ts.Add(1)
	return OpTime{TS: Timestamp{T: uint32(v >> 32), I: uint32(v)}, Term: c.term}
}

// Current returns the most recently issued optime without advancing.
func (c *Clock) Current() OpTime {
	v := c.ts.Load()
	return OpTime{TS: Timestamp{T: uint32(v >> 32), I: uint32(v)}, Term: c.term}
}
