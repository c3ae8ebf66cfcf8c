package chanselect

import "time"

// timeoutEvent is the Event returned by Timeout: it always becomes
// fulfillable once duration has elapsed, regardless of anything else
// happening concurrently. Grounded on original_source's
// chan/timeevents/timeout.h.
type timeoutEvent struct {
	duration time.Duration
}

// Timeout returns an Event that becomes fulfillable duration from when
// Select calls its file() (not from when Timeout itself was called).
func Timeout(duration time.Duration) Event {
	return &timeoutEvent{duration: duration}
}

func (e *timeoutEvent) file(ctx eventContext) (ioDescriptor, *Error) {
	return timeoutDescriptor(time.Now().Add(e.duration)), nil
}

func (e *timeoutEvent) fulfill(last ioDescriptor) (ioDescriptor, *Error) {
	return fulfilledDescriptor(), nil
}

func (e *timeoutEvent) cancel(last ioDescriptor) *Error {
	return nil
}

// deadlineEvent is the Event returned by Deadline: it becomes fulfillable at
// a fixed point in time rather than after a fixed duration. Grounded on
// original_source's chan/timeevents/deadline.h.
type deadlineEvent struct {
	when time.Time
}

// Deadline returns an Event that becomes fulfillable at or after when. If
// when is already in the past, the event is fulfillable immediately.
func Deadline(when time.Time) Event {
	return &deadlineEvent{when: when}
}

func (e *deadlineEvent) file(ctx eventContext) (ioDescriptor, *Error) {
	return timeoutDescriptor(e.when), nil
}

func (e *deadlineEvent) fulfill(last ioDescriptor) (ioDescriptor, *Error) {
	return fulfilledDescriptor(), nil
}

func (e *deadlineEvent) cancel(last ioDescriptor) *Error {
	return nil
}
