//go:build linux || darwin

package chanselect

import "time"

// ReadResult is returned by a ReadHandler to tell the Selector whether
// enough has been read. Grounded on original_source's
// chan/fileevents/readevent.h.
type ReadResult int

const (
	// ReadContinue means the handler wants to read more later; the
	// Selector keeps polling fd for readability.
	ReadContinue ReadResult = iota
	// ReadFulfilled means the handler is done; the ReadEvent commits.
	ReadFulfilled
)

// ReadFunc reads up to len(dst) bytes from the underlying file into dst and
// returns the number read, which may be zero (nothing currently available)
// or less than len(dst) (a short read). Handed to a ReadHandler by
// ReadEvent.fulfill.
type ReadFunc func(dst []byte) (int, error)

// ReadHandler implements the read side of a custom file event: each call to
// fulfill invokes the handler once with a ReadFunc bound to the event's file
// descriptor (already in non-blocking mode), and the handler's verdict
// decides whether the ReadEvent commits or keeps waiting.
type ReadHandler func(read ReadFunc) (ReadResult, error)

// readEvent is the Event returned by Read. Grounded on original_source's
// chan/fileevents/readevent.{h,cpp}.
type readEvent struct {
	fd      int
	handler ReadHandler
}

// Read returns an Event representing reading from fd, with handler deciding
// when enough has been read. fd must already be open for reading; ReadEvent
// temporarily switches it to non-blocking mode for the duration of each
// handler invocation and restores its prior flags afterward.
func Read(fd int, handler ReadHandler) Event {
	return &readEvent{fd: fd, handler: handler}
}

func (e *readEvent) file(ctx eventContext) (ioDescriptor, *Error) {
	return readDescriptor(e.fd), nil
}

func (e *readEvent) fulfill(last ioDescriptor) (ioDescriptor, *Error) {
	guard, gerr := newFileNonblockingGuard(e.fd)
	if gerr != nil {
		return ioDescriptor{}, gerr
	}

	result, herr := e.handler(func(dst []byte) (int, error) {
		n, rerr := readFile(e.fd, dst)
		if rerr != nil {
			return n, rerr
		}
		return n, nil
	})

	if rerr := guard.restore(); rerr != nil {
		return ioDescriptor{}, rerr
	}
	if herr != nil {
		if perr, ok := herr.(*Error); ok {
			return ioDescriptor{}, perr
		}
		return ioDescriptor{}, WrapError(Read, herr.Error(), herr)
	}

	if result == ReadFulfilled {
		return fulfilledDescriptor(), nil
	}
	return readDescriptor(e.fd), nil
}

func (e *readEvent) cancel(last ioDescriptor) *Error {
	return nil
}

// WriteResult is returned by a WriteHandler to tell the Selector whether
// enough has been written, or whether the handler wants to be retried after
// an unspecified delay without that delay counting as an error. Grounded on
// original_source's chan/fileevents/writeevent.h.
type WriteResult int

const (
	// WriteContinue means the handler wants to write more later; the
	// Selector keeps polling fd for writability.
	WriteContinue WriteResult = iota
	// WriteFulfilled means the handler is done; the WriteEvent commits.
	WriteFulfilled
	// WriteWait means the handler isn't ready to write yet; the Selector
	// waits out a geometrically increasing backoff before trying again,
	// the same treatment given to a broken pipe (see writeEvent.fulfill).
	WriteWait
)

// WriteFunc writes up to len(src) bytes from src to the underlying file and
// returns the number written, which may be zero (write would block) or less
// than len(src) (a short write, e.g. EPIPE with no current readers). Handed
// to a WriteHandler by WriteEvent.fulfill.
type WriteFunc func(src []byte) (int, error)

// WriteHandler implements the write side of a custom file event; see
// ReadHandler for the structurally identical read-side contract.
type WriteHandler func(write WriteFunc) (WriteResult, error)

const (
	minBackoff = time.Millisecond
	maxBackoff = time.Second
)

// writeEvent is the Event returned by Write. Grounded on original_source's
// chan/fileevents/writeevent.{h,cpp}: a write that can't currently proceed
// (a full pipe with no reader, or the handler itself asking to wait) is
// retried on a geometrically increasing timeout, 1ms up to 1s, rather than
// busy-polling the file descriptor.
type writeEvent struct {
	fd      int
	handler WriteHandler

	brokenPipeTimeout  time.Duration
	handlerWaitTimeout time.Duration
}

// Write returns an Event representing writing to fd, with handler deciding
// when enough has been written. fd must already be open for writing.
// IgnoreSIGPIPE should be called once during process startup if fd may be a
// pipe or socket, so that a write with no readers surfaces as EPIPE instead
// of terminating the process.
func Write(fd int, handler WriteHandler) Event {
	return &writeEvent{
		fd:                 fd,
		handler:            handler,
		brokenPipeTimeout:  minBackoff,
		handlerWaitTimeout: minBackoff,
	}
}

func (e *writeEvent) file(ctx eventContext) (ioDescriptor, *Error) {
	return writeDescriptor(e.fd), nil
}

func (e *writeEvent) fulfill(last ioDescriptor) (ioDescriptor, *Error) {
	if last.errorFlag || last.hangup {
		desc := timeoutDescriptor(time.Now().Add(e.brokenPipeTimeout))
		if e.brokenPipeTimeout < maxBackoff {
			e.brokenPipeTimeout *= 10
			if e.brokenPipeTimeout > maxBackoff {
				e.brokenPipeTimeout = maxBackoff
			}
		}
		return desc, nil
	}
	e.brokenPipeTimeout = minBackoff

	guard, gerr := newFileNonblockingGuard(e.fd)
	if gerr != nil {
		return ioDescriptor{}, gerr
	}

	result, herr := e.handler(func(src []byte) (int, error) {
		n, werr := writeFile(e.fd, src)
		if werr != nil {
			return n, werr
		}
		return n, nil
	})

	if rerr := guard.restore(); rerr != nil {
		return ioDescriptor{}, rerr
	}
	if herr != nil {
		if perr, ok := herr.(*Error); ok {
			return ioDescriptor{}, perr
		}
		return ioDescriptor{}, WrapError(Write, herr.Error(), herr)
	}

	switch result {
	case WriteFulfilled:
		return fulfilledDescriptor(), nil
	case WriteContinue:
		e.handlerWaitTimeout = minBackoff
		return writeDescriptor(e.fd), nil
	default: // WriteWait
		desc := timeoutDescriptor(time.Now().Add(e.handlerWaitTimeout))
		if e.handlerWaitTimeout < maxBackoff {
			e.handlerWaitTimeout *= 10
			if e.handlerWaitTimeout > maxBackoff {
				e.handlerWaitTimeout = maxBackoff
			}
		}
		return desc, nil
	}
}

func (e *writeEvent) cancel(last ioDescriptor) *Error {
	return nil
}
