// Package profiler implements the call-level profiling engine: it consumes
// call-entered / call-returned events from an external interception
// mechanism, samples them, maintains a live call tree with per-function
// counters, and reduces the raw state into immutable statistics snapshots.
package profiler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/callscope/callscope/internal/clock"
)

// ErrRunning is returned by Reset while a session is active.
var ErrRunning = errors.New("profiler is running")

// Default configuration values.
const (
	DefaultSamplingRate    = 1.0
	DefaultMonitorInterval = time.Second
	DefaultMonitorTopN     = 5
)

// Config configures a profiling session. The zero value measures every
// call with monitoring disabled.
type Config struct {
	// SamplingRate is the base probability of measuring a call, clamped
	// into [0, 1]. Defaults to 1.0 via New.
	SamplingRate float64
	// AdaptiveSampling enables the per-function feedback loop that raises
	// the rate for slow functions and lowers it for fast ones.
	AdaptiveSampling bool
	// RealTimeMonitoring starts a background loop that logs the top
	// functions every MonitorInterval.
	RealTimeMonitoring bool
	// MonitorInterval is the monitor emit period. Defaults to 1s.
	MonitorInterval time.Duration
	// MonitorTopN is how many functions each monitor emit covers.
	MonitorTopN int
	// ExcludedPrefixes lists function-name prefixes that are never
	// measured, evaluated before any sampling decision.
	ExcludedPrefixes []string

	// Clock overrides the session time source. Tests inject clock.Manual
	// here; production uses the monotonic clock.
	Clock clock.Clock
}

// Hook is the inbound event interface the external call-interception
// mechanism drives. The engine makes no assumption about how the events
// are obtained. A Hook is bound to exactly one Profiler; there is no
// package-level installation state.
type Hook interface {
	// OnEnter reports that a call to name began. origin is a source
	// location tag ("file.go:42").
	OnEnter(name, origin string)
	// OnExit reports that the innermost open call to name returned.
	OnExit(name string)
}

// Profiler owns one profiling session: sampler, aggregator, session clock
// and the optional monitor loop. All methods are safe for concurrent use.
type Profiler struct {
	logger  zerolog.Logger
	cfg     Config
	clk     clock.Clock
	sampler *Sampler
	agg     *aggregator

	mu        sync.Mutex
	running   bool
	sessionID string
	startedAt time.Duration
	stoppedAt time.Duration
	mon       *monitor
}

// New creates a Profiler from cfg. Zero-value fields are filled with
// defaults; an out-of-range sampling rate is clamped rather than rejected.
func New(cfg Config, logger zerolog.Logger) *Profiler {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewMonotonic()
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = DefaultMonitorInterval
	}
	if cfg.MonitorTopN <= 0 {
		cfg.MonitorTopN = DefaultMonitorTopN
	}

	sampler := NewSampler(SamplerConfig{
		Rate:             cfg.SamplingRate,
		Adaptive:         cfg.AdaptiveSampling,
		ExcludedPrefixes: cfg.ExcludedPrefixes,
	})

	return &Profiler{
		logger:  logger.With().Str("component", "profiler").Logger(),
		cfg:     cfg,
		clk:     cfg.Clock,
		sampler: sampler,
		agg:     newAggregator(cfg.Clock, sampler),
	}
}

// NewDefault creates a Profiler that measures every call, for hosts that
// want profiling without a config surface.
func NewDefault(logger zerolog.Logger) *Profiler {
	return New(Config{SamplingRate: DefaultSamplingRate}, logger)
}

// Start begins a profiling session. Calling Start on a running session is
// a no-op.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	if p.sessionID == "" {
		p.sessionID = uuid.NewString()
	}
	p.startedAt = p.clk.Now()
	p.stoppedAt = 0

	if p.cfg.RealTimeMonitoring {
		p.mon = newMonitor(p.cfg.MonitorInterval, p.cfg.MonitorTopN, p.Stats, p.logger)
		p.mon.start(context.Background())
	}

	p.logger.Debug().
		Str("session_id", p.sessionID).
		Float64("sampling_rate", p.sampler.Rate()).
		Bool("adaptive", p.cfg.AdaptiveSampling).
		Msg("Profiling session started")
}

// Stop ends the session. Idempotent: stopping twice is a no-op and loses
// no recorded data. Calls still open when Stop is invoked stay open in the
// tree. The monitor loop is joined with a bounded timeout so teardown
// never hangs.
func (p *Profiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stoppedAt = p.clk.Now()
	sessionID := p.sessionID
	elapsed := p.stoppedAt - p.startedAt
	mon := p.mon
	p.mon = nil
	// Join the monitor outside the lock: its tick may be blocked in Stats,
	// which needs the lock to read the session clock.
	p.mu.Unlock()

	if mon != nil {
		if !mon.stop() {
			p.logger.Warn().Msg("Monitor did not stop within timeout")
		}
	}

	p.logger.Debug().
		Str("session_id", sessionID).
		Dur("elapsed", elapsed).
		Msg("Profiling session stopped")
}

// Reset clears all recorded data, including adaptive sampling state.
// Only valid while stopped.
func (p *Profiler) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunning
	}
	p.agg.clear()
	p.sampler.reset()
	p.sessionID = ""
	p.startedAt = 0
	p.stoppedAt = 0
	return nil
}

// Running reports whether a session is active.
func (p *Profiler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SessionID returns the current session's identifier, empty before the
// first Start.
func (p *Profiler) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// OnEnter implements Hook. Events outside a session are ignored. The
// execution track is derived from the calling goroutine; hosts with their
// own context model use EnterTrack.
func (p *Profiler) OnEnter(name, origin string) {
	if !p.Running() {
		return
	}
	p.agg.onEnter(goid(), name, origin)
}

// OnExit implements Hook.
func (p *Profiler) OnExit(name string) {
	if !p.Running() {
		return
	}
	p.agg.onExit(goid(), name)
}

// EnterTrack is OnEnter with an explicit execution-track ID.
func (p *Profiler) EnterTrack(track uint64, name, origin string) {
	if !p.Running() {
		return
	}
	p.agg.onEnter(track, name, origin)
}

// ExitTrack is OnExit with an explicit execution-track ID.
func (p *Profiler) ExitTrack(track uint64, name string) {
	if !p.Running() {
		return
	}
	p.agg.onExit(track, name)
}

// elapsed returns the session wall time: live while running, frozen at
// Stop afterwards.
func (p *Profiler) elapsed() (string, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID == "" {
		return "", 0
	}
	if p.running {
		return p.sessionID, p.clk.Now() - p.startedAt
	}
	return p.sessionID, p.stoppedAt - p.startedAt
}

// Stats reduces the current state into an immutable snapshot. Safe to call
// at any time, including mid-session. Returns ErrNoData until at least one
// measured call has completed.
func (p *Profiler) Stats() (*Stats, error) {
	sessionID, elapsed := p.elapsed()
	return reduce(p.agg.snapshot(), sessionID, elapsed)
}
