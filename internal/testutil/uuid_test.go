package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedUUIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedUUIDGenerator()

	assert.Equal(t, "00000000-0000-7000-8000-000000000001", gen.New().String())
	assert.Equal(t, "00000000-0000-7000-8000-000000000002", gen.New().String())
	assert.Equal(t, "00000000-0000-7000-8000-000000000003", gen.New().String())
}

func TestFixedUUIDGenerator_Version(t *testing.T) {
	id := NewFixedUUIDGenerator().New()
	assert.Equal(t, 7, int(id.Version()))
}

func TestFixedUUIDGenerator_Deterministic(t *testing.T) {
	a, b := NewFixedUUIDGenerator(), NewFixedUUIDGenerator()
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.New(), b.New())
	}
}

func TestFixedUUIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedUUIDGenerator()

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.New().String()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
