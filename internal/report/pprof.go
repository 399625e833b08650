package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/callscope/callscope/internal/profiler"
)

// PprofReporter converts a statistics snapshot into a pprof profile so
// standard tooling (go tool pprof, speedscope) can consume callscope data.
type PprofReporter struct{}

// Build converts the snapshot's call tree into a profile with two sample
// types: call counts and own time in nanoseconds. Each unique call path
// becomes one sample; repeated occurrences of the same path aggregate.
func (r *PprofReporter) Build(stats *profiler.Stats) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "time", Unit: "nanoseconds"},
		},
		TimeNanos:     time.Now().UnixNano(),
		DurationNanos: int64(stats.TotalTime),
	}

	functions := make(map[string]*profile.Function)
	locations := make(map[string]*profile.Location)

	locationFor := func(name, origin string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		fn, ok := functions[name]
		if !ok {
			fn = &profile.Function{
				ID:       uint64(len(functions) + 1),
				Name:     name,
				Filename: origin,
			}
			functions[name] = fn
			p.Function = append(p.Function, fn)
		}
		loc := &profile.Location{
			ID:   uint64(len(locations) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		locations[name] = loc
		p.Location = append(p.Location, loc)
		return loc
	}

	// One aggregated sample per unique call path, leaf first as pprof
	// expects. The walk is iterative; the running path is maintained
	// alongside the traversal stack.
	type pathSample struct {
		stack []*profile.Location
		calls int64
		ownNs int64
	}
	paths := make(map[string]*pathSample)
	pathOrder := make([]string, 0)

	type item struct {
		frame *profiler.CallFrame
		path  string
		stack []*profile.Location
	}
	work := make([]item, 0, 64)
	for i := len(stats.Roots) - 1; i >= 0; i-- {
		work = append(work, item{frame: stats.Roots[i]})
	}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		f := it.frame
		path := it.path + ";" + f.Name
		loc := locationFor(f.Name, f.Origin)
		// Leaf-first stack: prepend the current location.
		stack := make([]*profile.Location, 0, len(it.stack)+1)
		stack = append(stack, loc)
		stack = append(stack, it.stack...)

		ps, ok := paths[path]
		if !ok {
			ps = &pathSample{stack: stack}
			paths[path] = ps
			pathOrder = append(pathOrder, path)
		}
		ps.calls++
		ps.ownNs += int64(f.OwnTime())

		for i := len(f.Children) - 1; i >= 0; i-- {
			work = append(work, item{frame: f.Children[i], path: path, stack: stack})
		}
	}

	for _, path := range pathOrder {
		ps := paths[path]
		p.Sample = append(p.Sample, &profile.Sample{
			Location: ps.stack,
			Value:    []int64{ps.calls, ps.ownNs},
		})
	}
	return p
}

// Write serializes the profile in the gzip-compressed pprof wire format.
func (r *PprofReporter) Write(stats *profiler.Stats, w io.Writer) error {
	p := r.Build(stats)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("built invalid profile: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
