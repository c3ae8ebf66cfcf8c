package chanselect

// event is the capability set every candidate argument to Select must
// satisfy. All three methods are invoked by exactly the one Selector that
// owns the event for the duration of a single Select call.
type event interface {
	// file is called once during setup with the (slot, key) identifying
	// this event within the enclosing Select call. The event may acquire
	// resources and register with external state (e.g. a channel's
	// participant queues), and must describe what the Selector should poll
	// or how long it should wait. A descriptor with fulfilled set means the
	// event is already complete and needs no polling.
	file(ctx eventContext) (ioDescriptor, *Error)

	// fulfill is called when the Selector observes readiness on whatever
	// file() (or the previous fulfill()) returned. On success it returns a
	// descriptor with fulfilled set. Otherwise it returns a new descriptor
	// prescribing further polling (e.g. a different file, or a short
	// timeout to retry against).
	fulfill(last ioDescriptor) (ioDescriptor, *Error)

	// cancel is called once a winner has been determined, for every record
	// that didn't complete itself via its own fulfill() (or file()) call.
	// Usually that means the losers of the Select call, but it also means
	// the winner itself in the case where a concurrent peer claimed this
	// call's fulfillment slot against this event before its own fulfill()
	// ran — cancel is then responsible for whatever completion work
	// fulfill() would otherwise have done (e.g. consuming a pending
	// rendezvous message). The event must release any resources it
	// acquired and detach from any external queues it joined. An error
	// here does not stop cancellation of the remaining events. While Select
	// is unwinding from an error, a loser's error is folded into the
	// SELECT_UNWINDING error it reports; once a winner has been committed,
	// errors from the losers' cancel calls are discarded. For the winner,
	// an error becomes the primary error for the whole call.
	cancel(last ioDescriptor) *Error
}

// Event is the exported form of the capability set above, returned by the
// event-factory functions (Send, Recv, Read, Write, Timeout, Deadline) and
// accepted by Select. It is a thin alias so that user code can hold the
// value without reaching into package-private fields.
type Event interface {
	event
}
