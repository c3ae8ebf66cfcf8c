//go:build linux || darwin

package chanselect

import (
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

var ignoreSigpipeOnce sync.Once

// IgnoreSIGPIPE arranges for the process to ignore SIGPIPE, so that a write
// to a pipe with no readers surfaces as EPIPE from write(2) (which WriteEvent
// already treats as "no readers yet, keep waiting") instead of terminating
// the process. The original engine did this implicitly via a static
// initializer (original_source's ignoresigpipe.cpp); spec.md §9 calls for an
// explicit opt-in instead, since a library silently changing process-wide
// signal disposition as a side effect of being linked in is a surprise Go
// libraries avoid. Call it once, early, from main() if the process writes to
// pipes or sockets through WriteEvent. Idempotent and safe to call more than
// once or from multiple goroutines.
func IgnoreSIGPIPE() {
	ignoreSigpipeOnce.Do(func() {
		signal.Ignore(unix.SIGPIPE)
	})
}
