// Package chanselect provides Go-style rendezvous channels and a
// heterogeneous multi-way Select operator capable of waiting on channel
// sends/receives, raw file descriptor reads/writes, relative timeouts, and
// absolute deadlines within a single call.
//
// # Architecture
//
// A [Channel] is unbuffered: a send only completes once paired with a
// matching receive, and vice versa. [Select] is the sole primitive for both:
// [Channel.Send] and [Channel.Recv] return [Event] values, and Select blocks
// until exactly one of its arguments becomes fulfillable, performs that
// event's side effect, cancels every other argument, and returns the
// winning argument's index.
//
// Every event passed to one Select call shares a fulfillment slot: a small
// piece of state that lets two goroutines racing to commit the same
// rendezvous agree, without a separate lock step, on which one of them (if
// either) actually wins. Channel events additionally lock each other's
// slots in a fixed address order before transferring a value, which is what
// keeps two goroutines selecting over overlapping sets of channels from
// deadlocking against each other.
//
// Beyond channels, [Read] and [Write] let a handler function drive an
// arbitrary file descriptor to completion under the same Select call as
// channel traffic, and [Timeout] / [Deadline] add a relative or absolute
// time bound. Internally these are all implemented in terms of a one-shot
// poll(2) pass per Select iteration, rather than a persistent
// epoll/kqueue-style registry: a Select call's descriptor set is rebuilt
// from scratch on every wait, since the whole point of the operator is to
// wait on a different, caller-chosen set of events each time it's called.
//
// # Platform Support
//
// chanselect is POSIX-only (Linux and macOS): it allocates pipes and calls
// poll(2)/fcntl(2) directly. There is no persistent per-platform I/O
// completion design to adapt to Windows here, since the underlying
// rendezvous protocol assumes POSIX pipe semantics throughout.
//
// # Error Handling
//
// Every fallible operation returns an [*Error] carrying a flat [ErrorKind]
// and, where relevant, the originating errno. If a Select call fails after
// some of its events have already joined shared state, cancelling the
// others can itself fail; those secondary failures are folded into a
// composite SELECT_UNWINDING [*Error] (see [Error.Unwrap]) rather than
// silently dropped. [LastError] additionally records the most recent error
// for the calling goroutine, mirroring the thread-local "last error" idiom
// the underlying protocol was translated from.
//
// # Usage
//
//	ch := chanselect.NewChannel[int]()
//
//	go func() {
//	    _ = ch.SendVal(42)
//	}()
//
//	var out int
//	switch idx, err := chanselect.Select(ch.Recv(&out), chanselect.Timeout(time.Second)); {
//	case err != nil:
//	    log.Fatal(err)
//	case idx == 0:
//	    fmt.Println("received", out)
//	default:
//	    fmt.Println("timed out")
//	}
package chanselect
