package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FixedUUIDGenerator returns a predictable sequence of version 7 shaped
// UUIDs: 00000000-0000-7000-8000-000000000001, ...002, and so on.
//
// This enables deterministic test execution and golden snapshot comparison.
//
// Thread-safety: safe for concurrent use.
type FixedUUIDGenerator struct {
	mu sync.Mutex
	n  uint64
}

// NewFixedUUIDGenerator creates a generator whose first UUID ends in 1.
func NewFixedUUIDGenerator() *FixedUUIDGenerator {
	return &FixedUUIDGenerator{}
}

// New returns the next UUID in the sequence.
func (g *FixedUUIDGenerator) New() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return uuid.MustParse(fmt.Sprintf("00000000-0000-7000-8000-%012x", g.n))
}
