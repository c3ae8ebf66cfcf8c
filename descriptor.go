package chanselect

import "time"

// EventKey is the zero-based index of an event within one Select call. The
// pair (fulfillment slot, EventKey) uniquely identifies a selectable event
// across all concurrently live Select calls.
type EventKey int

// ioDescriptor is the value an Event hands back to the Selector to describe
// what it's waiting on. read/write ask the Selector to poll file; timeout
// asks for a wake-up at or after expiration; fulfilled tells the Selector
// the event has already committed. hangup/errorFlag/invalid are set by the
// Selector itself as inputs to the event's next fulfill() call.
type ioDescriptor struct {
	read, write bool
	timeout     bool
	fulfilled   bool

	hangup    bool
	errorFlag bool
	invalid   bool

	file       int
	expiration time.Time
}

// fulfilledDescriptor returns a descriptor reporting that the event has
// already committed, requiring no further polling.
func fulfilledDescriptor() ioDescriptor {
	return ioDescriptor{fulfilled: true}
}

// readDescriptor asks the Selector to poll file for readability.
func readDescriptor(file int) ioDescriptor {
	return ioDescriptor{read: true, file: file}
}

// writeDescriptor asks the Selector to poll file for writability.
func writeDescriptor(file int) ioDescriptor {
	return ioDescriptor{write: true, file: file}
}

// timeoutDescriptor asks the Selector to wake up at or after expiration.
func timeoutDescriptor(expiration time.Time) ioDescriptor {
	return ioDescriptor{timeout: true, expiration: expiration}
}

// eventContext is handed to an Event's file() call so that it knows both
// which fulfillment slot governs the enclosing Select call and which
// EventKey identifies it within that call.
type eventContext struct {
	slot *fulfillmentSlot
	key  EventKey
}
