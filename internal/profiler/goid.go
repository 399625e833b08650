package profiler

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// goid returns the current goroutine's ID, used as the default execution
// track for the two-argument event interface. Parsing the runtime.Stack
// header is the only portable way to obtain it; the buffer is small and
// stack-allocated so the cost stays bounded. Hosts that manage their own
// execution contexts should use the explicit track API instead.
func goid() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
