package chanselect

import "unsafe"

// uintptrOf returns s's address as an integer, used solely to establish a
// total, consistent ordering between two fulfillment slots for lock
// acquisition (see lockOrdered in fulfillment.go). The original engine
// compared raw mutex addresses for the same purpose.
func uintptrOf(s *fulfillmentSlot) uintptr {
	return uintptr(unsafe.Pointer(s))
}
