//go:build linux || darwin

package chanselect

import "testing"

func TestIgnoreSIGPIPEIsIdempotent(t *testing.T) {
	// Calling it multiple times, including concurrently, must not panic or
	// block; sync.Once guarantees the underlying signal.Ignore call happens
	// exactly once.
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			IgnoreSIGPIPE()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
