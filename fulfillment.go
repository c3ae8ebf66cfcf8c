package chanselect

import "sync"

// fulfillmentState is the lifecycle of one Select call's commit state.
type fulfillmentState int

const (
	// fulfillable is the initial state: no event in this call has
	// committed yet, and any of them may still try.
	fulfillable fulfillmentState = iota
	// fulfilled means exactly one event (fulfilledAt) has committed; no
	// other event in the same call may subsequently commit.
	fulfilled
	// unfulfillable means the owning Select call is unwinding from an
	// error; no peer may attempt to fulfill any event in this call.
	unfulfillable
)

// fulfillmentSlot is the state shared, by pointer, by every Event
// belonging to one Select call. Its (address-ordered) mutex is also the
// basis of the cross-channel lock-ordering invariant: when a rendezvous
// visitor needs to lock both its own slot and its opponent's, it always
// locks the lower address first.
type fulfillmentSlot struct {
	mu          sync.Mutex
	state       fulfillmentState
	fulfilledAt EventKey // valid only once state == fulfilled
}

// newFulfillmentSlot returns a slot in the initial fulfillable state.
func newFulfillmentSlot() *fulfillmentSlot {
	return &fulfillmentSlot{state: fulfillable}
}

// tryFulfill attempts to transition the slot to fulfilled with the given
// key. It reports whether the transition happened; it fails if the slot was
// already fulfilled (by any key) or has been marked unfulfillable.
func (s *fulfillmentSlot) tryFulfill(key EventKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != fulfillable {
		return false
	}
	s.state = fulfilled
	s.fulfilledAt = key
	return true
}

// peek returns the current state and, if fulfilled, the winning key,
// without mutating anything.
func (s *fulfillmentSlot) peek() (fulfillmentState, EventKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.fulfilledAt
}

// markUnfulfillable transitions the slot so that no peer may subsequently
// commit any event in this call. Used only while unwinding from an error.
func (s *fulfillmentSlot) markUnfulfillable() {
	s.mu.Lock()
	s.state = unfulfillable
	s.mu.Unlock()
}

// stateLocked returns the slot's state and fulfilled key without locking;
// the caller must already hold s.mu (typically via lockOrdered).
func (s *fulfillmentSlot) stateLocked() (fulfillmentState, EventKey) {
	return s.state, s.fulfilledAt
}

// commitLocked transitions the slot to fulfilled with key, without locking;
// the caller must already hold s.mu (typically via lockOrdered).
func (s *fulfillmentSlot) commitLocked(key EventKey) {
	s.state = fulfilled
	s.fulfilledAt = key
}

// lockOrdered locks both s and other in ascending address order, returning
// an unlock function that releases both in the reverse order. This
// implements the lock-ordering invariant of spec.md §3: two fulfillment
// slots are never locked in an order that could deadlock against a
// concurrent peer doing the same rendezvous from the other side.
func lockOrdered(s, other *fulfillmentSlot) (unlock func()) {
	if s == other {
		s.mu.Lock()
		return s.mu.Unlock
	}
	if slotLess(s, other) {
		s.mu.Lock()
		other.mu.Lock()
		return func() {
			other.mu.Unlock()
			s.mu.Unlock()
		}
	}
	other.mu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		other.mu.Unlock()
	}
}

// slotLess orders two slots by memory address, the same tie-break the
// original engine used to pick a consistent lock acquisition order.
func slotLess(a, b *fulfillmentSlot) bool {
	return uintptrOf(a) < uintptrOf(b)
}
