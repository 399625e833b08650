package profiler

import "time"

// CallFrame represents a single invocation of a function: one node in the
// call tree. A frame is open from the moment the call enters until the
// matching return is observed; frames left open when a session stops stay
// open and report zero duration.
type CallFrame struct {
	// Name identifies the function. Identity is an opaque stable key
	// supplied by the interception layer, typically the fully qualified
	// function name.
	Name string
	// Origin is a source location tag ("file.go:42"), informational only.
	Origin string
	// Start and End are monotonic session-clock readings. End is only
	// meaningful once the call has returned.
	Start time.Duration
	End   time.Duration
	// Children holds the calls made directly from within this frame, in
	// invocation order.
	Children []*CallFrame

	ended bool
}

// Open reports whether the call is still on the stack.
func (f *CallFrame) Open() bool {
	return !f.ended
}

// finish stamps the frame's end time.
func (f *CallFrame) finish(end time.Duration) {
	f.End = end
	f.ended = true
}

// Duration returns the inclusive elapsed time of this call, or zero while
// the call is still open.
func (f *CallFrame) Duration() time.Duration {
	if !f.ended {
		return 0
	}
	return f.End - f.Start
}

// OwnTime returns the time spent in this frame excluding its direct
// children, clamped at zero to absorb clock-granularity noise.
func (f *CallFrame) OwnTime() time.Duration {
	d := f.Duration()
	for _, c := range f.Children {
		d -= c.Duration()
	}
	if d < 0 {
		return 0
	}
	return d
}

// addChild appends a nested call to this frame.
func (f *CallFrame) addChild(child *CallFrame) {
	f.Children = append(f.Children, child)
}

// walkFrames visits every frame reachable from roots exactly once,
// parents before children. The traversal is iterative so arbitrarily deep
// or recursive call trees cannot exhaust the goroutine stack.
func walkFrames(roots []*CallFrame, visit func(*CallFrame)) {
	if len(roots) == 0 {
		return
	}
	stack := make([]*CallFrame, 0, 64)
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(f)
		for i := len(f.Children) - 1; i >= 0; i-- {
			stack = append(stack, f.Children[i])
		}
	}
}
