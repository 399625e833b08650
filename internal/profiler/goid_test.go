package profiler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoidStableWithinGoroutine(t *testing.T) {
	first := goid()
	require.NotZero(t, first)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, goid())
	}
}

func TestGoidDiffersAcrossGoroutines(t *testing.T) {
	const n = 16

	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- goid()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]struct{})
	for id := range ids {
		require.NotZero(t, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}
