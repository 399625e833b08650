// Package report renders profiler statistics snapshots for external
// consumers: console tables, flame graph JSON/HTML and pprof protos.
// The engine itself owns no I/O; everything here works on the immutable
// Stats snapshot and caller-supplied writers.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/callscope/callscope/internal/profiler"
)

// Sort keys accepted by the console reporter.
const (
	SortByTotal = "total"
	SortByOwn   = "own"
	SortByCalls = "calls"
	SortByName  = "name"
)

// ConsoleReporter writes a fixed-width table of the top functions.
type ConsoleReporter struct {
	// TopN limits the number of rows; 0 means all.
	TopN int
	// SortBy is one of total, own, calls, name. Unknown values fall back
	// to total.
	SortBy string
}

// Report writes the table for stats to w.
func (r *ConsoleReporter) Report(stats *profiler.Stats, w io.Writer) error {
	funcs := make([]*profiler.FunctionStats, len(stats.Ranked))
	copy(funcs, stats.Ranked)

	switch r.SortBy {
	case SortByOwn:
		sort.SliceStable(funcs, func(i, j int) bool { return funcs[i].OwnTime > funcs[j].OwnTime })
	case SortByCalls:
		sort.SliceStable(funcs, func(i, j int) bool { return funcs[i].CallCount > funcs[j].CallCount })
	case SortByName:
		sort.SliceStable(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	default:
		// Ranked is already total-time descending.
	}

	if r.TopN > 0 && r.TopN < len(funcs) {
		funcs = funcs[:r.TopN]
	}

	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("%-40s %10s %14s %14s %7s\n", "Function", "Calls", "Total(s)", "Own(s)", "%")
	p("%s\n", divider)
	for _, fs := range funcs {
		p("%-40s %10d %14.6f %14.6f %6.1f%%\n",
			truncate(fs.Name, 40),
			fs.CallCount,
			fs.TotalTime.Seconds(),
			fs.OwnTime.Seconds(),
			fs.Percentage,
		)
	}
	p("%s\n", divider)
	p("Total time: %.6fs (%d functions)\n", stats.TotalTime.Seconds(), len(stats.Ranked))
	return err
}

var divider = func() string {
	b := make([]byte, 88)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}()

// truncate shortens s to max runes, keeping the tail, which carries the
// discriminating part of a qualified function name.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-(max-3):]
}
