package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retrywrites/internal/oplog"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock(1, 100)
	assert.Equal(t, oplog.NewOpTime(1, 100, 0), clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock(1, 100)

	assert.Equal(t, oplog.NewOpTime(1, 100, 1), clock.Next())
	assert.Equal(t, oplog.NewOpTime(1, 100, 1), clock.Current())

	assert.Equal(t, oplog.NewOpTime(1, 100, 2), clock.Next())
	assert.Equal(t, oplog.NewOpTime(1, 100, 3), clock.Next())
	assert.Equal(t, oplog.NewOpTime(1, 100, 3), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(2, 7)

	clock.Next()
	clock.Next()
	clock.Reset()
	assert.Equal(t, oplog.NewOpTime(2, 7, 0), clock.Current())

	// First call after reset returns increment 1
	assert.Equal(t, oplog.NewOpTime(2, 7, 1), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(1, 100)
	const numGoroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]oplog.OpTime, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]oplog.OpTime, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Next()
			}
		}(i)
	}

	wg.Wait()

	seen := make(map[oplog.OpTime]bool)
	for i := 0; i < numGoroutines; i++ {
		for j := 0; j < callsPerGoroutine; j++ {
			val := results[i][j]
			require.False(t, seen[val], "duplicate position %s", val)
			seen[val] = true
		}
	}

	// Every increment from 1 to the total must have been handed out
	expectedTotal := numGoroutines * callsPerGoroutine
	assert.Len(t, seen, expectedTotal)
	for i := uint32(1); i <= uint32(expectedTotal); i++ {
		assert.True(t, seen[oplog.NewOpTime(1, 100, i)], "missing increment %d", i)
	}
}

func TestDeterministicClock_Deterministic(t *testing.T) {
	clock1 := NewDeterministicClock(1, 100)
	clock2 := NewDeterministicClock(1, 100)

	for i := 0; i < 100; i++ {
		assert.Equal(t, clock1.Next(), clock2.Next())
	}
}
