package testutil

import (
	"sync"

	"github.com/roach88/retrywrites/internal/oplog"
)

// DeterministicClock hands out log positions for tests.
//
// Positions share one term and one seconds value and differ only in the
// increment, so a scenario that runs twice gets identical positions.
// Unlike oplog.Clock, DeterministicClock can be reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	term int64
	secs uint32
	inc  uint32
}

// NewDeterministicClock creates a clock at Timestamp(secs, 0) in term.
//
// The first call to Next() returns {ts: Timestamp(secs, 1), t: term}.
func NewDeterministicClock(term int64, secs uint32) *DeterministicClock {
	return &DeterministicClock{term: term, secs: secs}
}

// Next advances the increment and returns the new position.
func (c *DeterministicClock) Next() oplog.OpTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inc++
	return oplog.NewOpTime(c.term, c.secs, c.inc)
}

// Current returns the last position handed out without advancing.
func (c *DeterministicClock) Current() oplog.OpTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return oplog.NewOpTime(c.term, c.secs, c.inc)
}

// Reset rewinds the clock. After Reset(), Next() returns increment 1 again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inc = 0
}
