package chanselect

import (
	"sync"

	"github.com/petermattis/goid"
)

// lastErrorByGoroutine is the Go substitute for the engine's thread-local
// "last error" slot: the original keeps one Error per OS thread; since
// goroutines rather than OS threads are this package's unit of concurrency,
// the slot is keyed by goroutine ID instead (github.com/petermattis/goid),
// the same mechanism sasha-s/go-deadlock uses to detect cross-goroutine lock
// misuse.
var lastErrorByGoroutine sync.Map // map[int64]*Error

// setLastError records err as the calling goroutine's most recent Select
// failure. Called only from Select's failure paths.
func setLastError(err *Error) {
	lastErrorByGoroutine.Store(goid.Get(), err)
}

// LastError returns the most recent error reported by a failing call to
// Select on the current goroutine, or nil if none has occurred yet (or the
// slot was cleared). Mirrors the engine's thread-local lastError() accessor.
func LastError() *Error {
	v, ok := lastErrorByGoroutine.Load(goid.Get())
	if !ok {
		return nil
	}
	return v.(*Error)
}

// ClearLastError resets the calling goroutine's last-error slot. Most
// callers have no need for it, since each failing Select call simply
// overwrites the slot, but a long-lived goroutine that selects in a loop can
// use it to avoid pinning the most recent *Error (and its cause chain) in
// memory once the error has been handled.
func ClearLastError() {
	lastErrorByGoroutine.Delete(goid.Get())
}
