// Package memprof provides the allocation-snapshot facility that runs
// alongside the call profiler: it captures heap statistics at session
// start and stop and reports the growth between them.
package memprof

import (
	"errors"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/callscope/callscope/internal/safe"
)

// ErrNoData is returned by Stats before a snapshot pair has been captured.
var ErrNoData = errors.New("no memory profiling data available")

// Snapshot captures the process memory state at one instant.
type Snapshot struct {
	Taken time.Time
	// HeapAlloc is the live heap in bytes (runtime.MemStats.HeapAlloc).
	HeapAlloc uint64
	// TotalAlloc is the cumulative allocated bytes since process start.
	TotalAlloc uint64
	// Sys is the total memory obtained from the OS by the runtime.
	Sys uint64
	// NumGC is the completed GC cycle count.
	NumGC uint32
	// RSS is the process resident set size in bytes, zero when the
	// platform probe fails.
	RSS uint64
}

// Stats summarizes one profiling window.
type Stats struct {
	Start Snapshot
	End   Snapshot
	// HeapGrowth is End.HeapAlloc - Start.HeapAlloc; negative when the GC
	// reclaimed more than was allocated.
	HeapGrowth int64
	// AllocatedBytes is the total allocation volume during the window.
	AllocatedBytes uint64
	// GCCycles is the number of collections during the window.
	GCCycles uint32
}

// Profiler captures snapshot pairs around a profiling window. Safe for
// concurrent use; Start/Stop are idempotent like the call profiler's.
type Profiler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	start   Snapshot
	last    *Stats
	proc    *process.Process
}

// New creates a memory profiler.
func New(logger zerolog.Logger) *Profiler {
	p := &Profiler{
		logger: logger.With().Str("component", "memprof").Logger(),
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// RSS readings degrade to zero; heap stats still work.
		p.logger.Warn().Err(err).Msg("Failed to open process handle, RSS unavailable")
	} else {
		p.proc = proc
	}
	return p
}

// Start captures the opening snapshot. No-op while already running.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.start = p.snapshot()
	p.logger.Debug().Uint64("heap_alloc", p.start.HeapAlloc).Msg("Memory profiling started")
}

// Stop captures the closing snapshot and finalizes the window's stats.
// No-op while stopped.
func (p *Profiler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false

	end := p.snapshot()
	endHeap, _ := safe.Uint64ToInt64(end.HeapAlloc)
	startHeap, _ := safe.Uint64ToInt64(p.start.HeapAlloc)
	p.last = &Stats{
		Start:          p.start,
		End:            end,
		HeapGrowth:     endHeap - startHeap,
		AllocatedBytes: end.TotalAlloc - p.start.TotalAlloc,
		GCCycles:       end.NumGC - p.start.NumGC,
	}

	p.logger.Debug().
		Int64("heap_growth", p.last.HeapGrowth).
		Uint64("allocated", p.last.AllocatedBytes).
		Uint32("gc_cycles", p.last.GCCycles).
		Msg("Memory profiling stopped")
}

// Running reports whether a window is open.
func (p *Profiler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns the most recent completed window, or ErrNoData if none
// has completed yet.
func (p *Profiler) Stats() (*Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil, ErrNoData
	}
	out := *p.last
	return &out, nil
}

// Reset discards the recorded window. Only valid while stopped.
func (p *Profiler) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("memory profiler is running")
	}
	p.last = nil
	return nil
}

func (p *Profiler) snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := Snapshot{
		Taken:      time.Now(),
		HeapAlloc:  ms.HeapAlloc,
		TotalAlloc: ms.TotalAlloc,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
	}
	if p.proc != nil {
		if mi, err := p.proc.MemoryInfo(); err == nil && mi != nil {
			snap.RSS = mi.RSS
		}
	}
	return snap
}
