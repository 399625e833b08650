package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicNeverDecreases(t *testing.T) {
	c := NewMonotonic()

	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		require.GreaterOrEqual(t, now, prev)
		prev = now
	}
}

func TestManualAdvance(t *testing.T) {
	c := NewManual()
	assert.Equal(t, time.Duration(0), c.Now())

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, c.Now())

	c.Advance(50 * time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, c.Now())
}

func TestManualIgnoresNegativeAdvance(t *testing.T) {
	c := NewManual()
	c.Advance(time.Second)
	c.Advance(-time.Second)
	assert.Equal(t, time.Second, c.Now())
}

func TestManualSetOnlyMovesForward(t *testing.T) {
	c := NewManual()
	c.Set(2 * time.Second)
	assert.Equal(t, 2*time.Second, c.Now())

	c.Set(time.Second)
	assert.Equal(t, 2*time.Second, c.Now())
}
