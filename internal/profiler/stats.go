package profiler

import (
	"errors"
	"sort"
	"time"
)

// ErrNoData is returned by Stats when no call has been measured yet. It
// distinguishes "never profiled" from "profiled with zero functions".
var ErrNoData = errors.New("no profiling data available")

// FunctionStats holds the reduced statistics for a single function.
type FunctionStats struct {
	Name      string        `json:"name" yaml:"name"`
	CallCount uint64        `json:"call_count" yaml:"call_count"`
	TotalTime time.Duration `json:"total_time" yaml:"total_time"`
	AvgTime   time.Duration `json:"avg_time" yaml:"avg_time"`
	OwnTime   time.Duration `json:"own_time" yaml:"own_time"`
	// Percentage is TotalTime relative to the session elapsed time.
	Percentage float64 `json:"percentage" yaml:"percentage"`
	// Callers maps caller name (RootCaller for top-level calls) to the
	// number of times it invoked this function.
	Callers map[string]uint64 `json:"callers,omitempty" yaml:"callers,omitempty"`
	// Callees maps callee name to the number of times this function
	// invoked it.
	Callees map[string]uint64 `json:"callees,omitempty" yaml:"callees,omitempty"`
}

// Stats is an immutable point-in-time snapshot of a profiling session.
type Stats struct {
	// SessionID identifies the session this snapshot was taken from.
	SessionID string `json:"session_id" yaml:"session_id"`
	// TotalTime is the elapsed session time at the moment of the snapshot.
	TotalTime time.Duration `json:"total_time" yaml:"total_time"`
	// Functions maps function name to its statistics.
	Functions map[string]*FunctionStats `json:"functions" yaml:"functions"`
	// Ranked lists functions by TotalTime descending, ties broken by
	// first-seen order so repeated runs of the same workload rank
	// identically.
	Ranked []*FunctionStats `json:"ranked" yaml:"ranked"`
	// Roots is the reduced call tree, one frame per top-level call.
	Roots []*CallFrame `json:"-" yaml:"-"`
}

// Row is the flat tabular form of one function's statistics, the contract
// external reporters depend on.
type Row struct {
	Name       string        `json:"name" yaml:"name"`
	CallCount  uint64        `json:"call_count" yaml:"call_count"`
	TotalTime  time.Duration `json:"total_time" yaml:"total_time"`
	OwnTime    time.Duration `json:"own_time" yaml:"own_time"`
	Percentage float64       `json:"percentage" yaml:"percentage"`
}

// Top returns the first n ranked functions (all of them if n <= 0 or
// exceeds the list).
func (s *Stats) Top(n int) []*FunctionStats {
	if n <= 0 || n > len(s.Ranked) {
		n = len(s.Ranked)
	}
	return s.Ranked[:n]
}

// Function returns the statistics for name, or nil if it was never measured.
func (s *Stats) Function(name string) *FunctionStats {
	return s.Functions[name]
}

// Rows returns the ranked statistics in flat tabular form.
func (s *Stats) Rows() []Row {
	rows := make([]Row, len(s.Ranked))
	for i, fs := range s.Ranked {
		rows[i] = Row{
			Name:       fs.Name,
			CallCount:  fs.CallCount,
			TotalTime:  fs.TotalTime,
			OwnTime:    fs.OwnTime,
			Percentage: fs.Percentage,
		}
	}
	return rows
}

// reduce converts raw aggregator state into a Stats snapshot. Returns
// ErrNoData when no timing sample exists at all.
func reduce(st aggregatorState, sessionID string, sessionElapsed time.Duration) (*Stats, error) {
	if len(st.samples) == 0 {
		return nil, ErrNoData
	}

	// Own time per function, summed across every position the function
	// occupies in the tree. Open frames (End unset) report zero duration
	// and contribute nothing, but their children are still visited.
	ownTotals := make(map[string]time.Duration)
	walkFrames(st.roots, func(f *CallFrame) {
		ownTotals[f.Name] += f.OwnTime()
	})

	functions := make(map[string]*FunctionStats, len(st.samples))
	for name, samples := range st.samples {
		var total time.Duration
		for _, d := range samples {
			total += d
		}
		fs := &FunctionStats{
			Name:      name,
			CallCount: st.counts[name],
			TotalTime: total,
			OwnTime:   ownTotals[name],
			Callers:   make(map[string]uint64),
			Callees:   make(map[string]uint64),
		}
		if n := len(samples); n > 0 {
			fs.AvgTime = total / time.Duration(n)
		}
		if sessionElapsed > 0 {
			fs.Percentage = float64(total) / float64(sessionElapsed) * 100
		}
		functions[name] = fs
	}

	for e, count := range st.edges {
		if fs, ok := functions[e.Callee]; ok {
			fs.Callers[e.Caller] += count
		}
		if fs, ok := functions[e.Caller]; ok {
			fs.Callees[e.Callee] += count
		}
	}

	ranked := make([]*FunctionStats, 0, len(functions))
	for _, fs := range functions {
		ranked = append(ranked, fs)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalTime != ranked[j].TotalTime {
			return ranked[i].TotalTime > ranked[j].TotalTime
		}
		return st.order[ranked[i].Name] < st.order[ranked[j].Name]
	})

	return &Stats{
		SessionID: sessionID,
		TotalTime: sessionElapsed,
		Functions: functions,
		Ranked:    ranked,
		Roots:     st.roots,
	}, nil
}
