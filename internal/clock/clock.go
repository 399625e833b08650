// Package clock provides the monotonic time source used by the profiler.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic time source. Now returns the elapsed time since an
// arbitrary fixed origin; successive calls never decrease. Implementations
// must be safe for concurrent use.
type Clock interface {
	Now() time.Duration
}

// Monotonic reads the process monotonic clock. It is immune to wall-clock
// adjustments (NTP steps, manual changes).
type Monotonic struct {
	origin time.Time
}

// NewMonotonic creates a Monotonic clock anchored at the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{origin: time.Now()}
}

// Now returns the elapsed monotonic time since the clock was created.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.origin)
}

// Manual is a hand-driven clock for tests. Time only moves when Advance is
// called, so timing assertions can be exact.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManual creates a Manual clock starting at zero.
func NewManual() *Manual {
	return &Manual{}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative deltas are ignored so the
// clock stays monotonic.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

// Set jumps the clock to t if t is ahead of the current time.
func (m *Manual) Set(t time.Duration) {
	m.mu.Lock()
	if t > m.now {
		m.now = t
	}
	m.mu.Unlock()
}
