// Package callscope is the embedding surface for the callscope profiler.
//
// Hosts create a Profiler, start a session, and drive the two-event Hook
// interface from whatever interception mechanism they have (compile-time
// instrumentation, a bytecode shim, manual wrappers). The engine samples
// the events, maintains a call tree per execution track, and reduces the
// recorded state into an immutable statistics snapshot on demand.
//
// Basic integration:
//
//	import "github.com/callscope/callscope/pkg/callscope"
//
//	func main() {
//	    p := callscope.NewDefault(logger)
//	    p.Start()
//	    defer p.Stop()
//
//	    p.OnEnter("myapp.handleRequest", "handler.go:42")
//	    handleRequest()
//	    p.OnExit("myapp.handleRequest")
//
//	    stats, err := p.Stats()
//	    ...
//	}
//
// Hosts with their own notion of execution context (request IDs, worker
// slots) use EnterTrack/ExitTrack instead of the goroutine-derived track.
package callscope
