package profiler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// monitorStopTimeout bounds how long Stop waits for the monitor goroutine
// to drain. Session teardown never blocks past this.
const monitorStopTimeout = time.Second

// monitor periodically reduces the session state and logs a compact top-N
// view. It never terminates the session: tick failures are logged and the
// loop keeps going.
type monitor struct {
	interval time.Duration
	topN     int
	stats    func() (*Stats, error)
	logger   zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func newMonitor(interval time.Duration, topN int, stats func() (*Stats, error), logger zerolog.Logger) *monitor {
	return &monitor{
		interval: interval,
		topN:     topN,
		stats:    stats,
		logger:   logger.With().Str("component", "monitor").Logger(),
		done:     make(chan struct{}),
	}
}

func (m *monitor) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	go m.loop(ctx)
}

func (m *monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug().Dur("interval", m.interval).Msg("Monitor started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug().Msg("Monitor stopped")
			return
		case <-ticker.C:
			m.emit()
		}
	}
}

// emit logs the current top-N functions. Panics inside the reduce or the
// log path are recovered so a bad tick cannot kill the session.
func (m *monitor) emit() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("Monitor tick panicked")
		}
	}()

	stats, err := m.stats()
	if err != nil {
		if err != ErrNoData {
			m.logger.Warn().Err(err).Msg("Failed to reduce statistics")
		}
		return
	}

	for _, fs := range stats.Top(m.topN) {
		m.logger.Info().
			Str("function", fs.Name).
			Uint64("calls", fs.CallCount).
			Dur("total", fs.TotalTime).
			Dur("own", fs.OwnTime).
			Float64("pct", fs.Percentage).
			Msg("Top function")
	}
}

// stop signals the loop and waits for it to drain, bounded by
// monitorStopTimeout. Returns false if the join timed out.
func (m *monitor) stop() bool {
	if m.cancel == nil {
		return true
	}
	m.cancel()
	select {
	case <-m.done:
		return true
	case <-time.After(monitorStopTimeout):
		return false
	}
}
