package callscope

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/callscope/callscope/internal/profiler"
	"github.com/callscope/callscope/internal/report"
)

// Aliases for the engine types so hosts never import internal packages.
type (
	// Profiler owns one profiling session.
	Profiler = profiler.Profiler
	// Config configures a profiling session.
	Config = profiler.Config
	// Hook is the inbound call-event interface.
	Hook = profiler.Hook
	// Stats is an immutable statistics snapshot.
	Stats = profiler.Stats
	// FunctionStats holds the aggregate for one function.
	FunctionStats = profiler.FunctionStats
	// Row is one line of the flat tabular view.
	Row = profiler.Row
)

// Sentinel errors re-exported from the engine.
var (
	// ErrNoData is returned by Stats before any measured call completed.
	ErrNoData = profiler.ErrNoData
	// ErrRunning is returned by Reset while a session is active.
	ErrRunning = profiler.ErrRunning
)

// New creates a Profiler from cfg. Zero-value fields are filled with
// defaults.
func New(cfg Config, logger zerolog.Logger) *Profiler {
	return profiler.New(cfg, logger)
}

// NewDefault creates a Profiler that measures every call.
func NewDefault(logger zerolog.Logger) *Profiler {
	return profiler.NewDefault(logger)
}

// WriteReport renders stats as the fixed-width console table, the same
// rendering the callscope CLI uses.
func WriteReport(stats *Stats, topN int, w io.Writer) error {
	r := &report.ConsoleReporter{TopN: topN}
	return r.Report(stats, w)
}
