package profiler

import (
	"sync"
	"time"

	"github.com/callscope/callscope/internal/clock"
)

// RootCaller is the sentinel caller name recorded for calls entered with an
// empty stack, i.e. top-level calls.
const RootCaller = "<root>"

// edge is one (caller, callee) pair in the call-relationship matrix.
type edge struct {
	Caller string
	Callee string
}

// rejectedCall marks an enter event the sampler declined, so the matching
// return event can be discarded without touching the accepted stack. depth
// is the accepted-stack depth at the time of rejection; since call/return
// events are strictly LIFO per track, (name, depth) is enough to pair the
// return with its enter even under recursion.
type rejectedCall struct {
	name  string
	depth int
}

// track holds the per-execution-context call state. A track's fields are
// only ever mutated by the goroutine driving that track; the accepted
// stack is additionally mutated under the aggregator lock so the reducer
// can observe a consistent tree.
type track struct {
	stack    []*CallFrame
	rejected []rejectedCall
}

// aggregator owns all mutable profiling state for one session. Every
// mutation of the shared structures (counts, samples, tree roots, edges)
// happens under mu; the critical sections are O(1) map and slice
// operations, never user code.
type aggregator struct {
	clk     clock.Clock
	sampler *Sampler

	tracks sync.Map // uint64 -> *track

	mu      sync.Mutex
	counts  map[string]uint64
	samples map[string][]time.Duration
	roots   []*CallFrame
	edges   map[edge]uint64
	order   map[string]int // first-seen index per function, for stable sorting
}

func newAggregator(clk clock.Clock, sampler *Sampler) *aggregator {
	a := &aggregator{
		clk:     clk,
		sampler: sampler,
	}
	a.clear()
	return a
}

func (a *aggregator) clear() {
	a.mu.Lock()
	a.counts = make(map[string]uint64)
	a.samples = make(map[string][]time.Duration)
	a.roots = nil
	a.edges = make(map[edge]uint64)
	a.order = make(map[string]int)
	a.mu.Unlock()
	a.tracks.Range(func(k, _ any) bool {
		a.tracks.Delete(k)
		return true
	})
}

func (a *aggregator) trackFor(id uint64) *track {
	if t, ok := a.tracks.Load(id); ok {
		return t.(*track)
	}
	t, _ := a.tracks.LoadOrStore(id, &track{})
	return t.(*track)
}

// onEnter processes a call-entered event on the given track.
func (a *aggregator) onEnter(trackID uint64, name, origin string) {
	t := a.trackFor(trackID)

	if !a.sampler.Accept(name) {
		// Remember the rejection so the matching return is discarded.
		t.rejected = append(t.rejected, rejectedCall{name: name, depth: len(t.stack)})
		return
	}

	frame := &CallFrame{
		Name:   name,
		Origin: origin,
		Start:  a.clk.Now(),
	}

	a.mu.Lock()
	a.counts[name]++
	if _, seen := a.order[name]; !seen {
		a.order[name] = len(a.order)
	}

	caller := RootCaller
	if n := len(t.stack); n > 0 {
		parent := t.stack[n-1]
		caller = parent.Name
		parent.addChild(frame)
	} else {
		a.roots = append(a.roots, frame)
	}
	a.edges[edge{Caller: caller, Callee: name}]++
	t.stack = append(t.stack, frame)
	a.mu.Unlock()
}

// onExit processes a call-returned event on the given track. Returns
// matching a rejected enter are dropped; returns with no matching enter at
// all (e.g. unwinding through unmeasured frames) are discarded rather than
// corrupting the stack.
func (a *aggregator) onExit(trackID uint64, name string) {
	t := a.trackFor(trackID)

	// The most recent unreturned call is either the top of the rejected
	// stack or the top of the accepted stack, whichever was entered later.
	// A rejected entry at the current accepted depth was entered later.
	if n := len(t.rejected); n > 0 {
		top := t.rejected[n-1]
		if top.name == name && top.depth == len(t.stack) {
			t.rejected = t.rejected[:n-1]
			return
		}
	}

	n := len(t.stack)
	if n == 0 || t.stack[n-1].Name != name {
		// Unbalanced exit: tolerate and drop.
		return
	}

	a.mu.Lock()
	frame := t.stack[n-1]
	t.stack = t.stack[:n-1]
	frame.finish(a.clk.Now())
	elapsed := frame.End - frame.Start
	a.samples[name] = append(a.samples[name], elapsed)
	a.mu.Unlock()

	a.sampler.Observe(name, frame.OwnTime())
}

// snapshot copies the shared state under the lock so the reducer and the
// reporters can work on a consistent view. The frame tree is deep-copied:
// open calls keep stamping End and appending children after the snapshot,
// and handing out shared nodes would race with that.
func (a *aggregator) snapshot() aggregatorState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := aggregatorState{
		counts:  make(map[string]uint64, len(a.counts)),
		samples: make(map[string][]time.Duration, len(a.samples)),
		roots:   cloneFrames(a.roots),
		edges:   make(map[edge]uint64, len(a.edges)),
		order:   make(map[string]int, len(a.order)),
	}
	for k, v := range a.counts {
		st.counts[k] = v
	}
	for k, v := range a.samples {
		cp := make([]time.Duration, len(v))
		copy(cp, v)
		st.samples[k] = cp
	}
	for k, v := range a.edges {
		st.edges[k] = v
	}
	for k, v := range a.order {
		st.order[k] = v
	}
	return st
}

// cloneFrames deep-copies a forest of call frames iteratively.
func cloneFrames(roots []*CallFrame) []*CallFrame {
	if len(roots) == 0 {
		return nil
	}
	out := make([]*CallFrame, len(roots))
	type item struct {
		src *CallFrame
		dst *CallFrame
	}
	stack := make([]item, 0, 64)
	for i, r := range roots {
		cp := *r
		cp.Children = nil
		out[i] = &cp
		stack = append(stack, item{src: r, dst: out[i]})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range it.src.Children {
			cp := *child
			cp.Children = nil
			it.dst.Children = append(it.dst.Children, &cp)
			stack = append(stack, item{src: child, dst: &cp})
		}
	}
	return out
}

// aggregatorState is a point-in-time copy of the shared profiling state,
// fed to the statistics reducer.
type aggregatorState struct {
	counts  map[string]uint64
	samples map[string][]time.Duration
	roots   []*CallFrame
	edges   map[edge]uint64
	order   map[string]int
}
