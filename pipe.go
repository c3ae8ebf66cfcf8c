//go:build linux || darwin

package chanselect

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pipe is a one-directional kernel pipe used as a wake-up carrier by the
// channel rendezvous protocol: one byte written to writeFD wakes whichever
// Selector has readFD registered in its poll set. Its reference count is
// shared by at most two participants (an owner and, transiently, a visiting
// peer); the owning channel's mutex guards every refcount change.
type pipe struct {
	readFD, writeFD int
	refs            int
}

// pipePool hands out reference-counted pipes and recycles them once their
// refcount drops to zero, draining any residual bytes first so a reused pipe
// never surfaces a stale protocol byte to its next owner.
type pipePool struct {
	mu   sync.Mutex
	free []*pipe
}

// allocate pops a recycled pipe off the free list, or creates a fresh OS
// pipe pair if none is available.
func (pp *pipePool) allocate() (*pipe, *Error) {
	pp.mu.Lock()
	if n := len(pp.free); n > 0 {
		p := pp.free[n-1]
		pp.free = pp.free[:n-1]
		pp.mu.Unlock()
		p.refs = 1
		return p, nil
	}
	pp.mu.Unlock()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, NewErrnoError(CreatePipe, int(err.(unix.Errno)))
	}
	return &pipe{readFD: fds[0], writeFD: fds[1], refs: 1}, nil
}

// deallocate returns p to the free list. Precondition: p.refs == 0. Any
// bytes still sitting in the read end are drained first so the pipe is
// reusable without a future owner observing a leftover protocol message.
func (pp *pipePool) deallocate(p *pipe) *Error {
	if err := drainPipe(p.readFD); err != nil {
		return err
	}
	pp.mu.Lock()
	pp.free = append(pp.free, p)
	pp.mu.Unlock()
	return nil
}

// closeAll closes every pipe currently sitting on the free list. Called when
// the owning channel state (and therefore its pool) is no longer reachable
// by any handle.
func (pp *pipePool) closeAll() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	for _, p := range pp.free {
		_ = unix.Close(p.readFD)
		_ = unix.Close(p.writeFD)
	}
	pp.free = nil
}

// drainPipe empties any bytes left in a recycled pipe's read end. The file
// is put into non-blocking mode for the duration of the drain so that the
// read loop terminates on EAGAIN rather than blocking forever on an empty
// pipe, and its original flags are restored before returning.
func drainPipe(fd int) *Error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return NewErrnoError(GetFileFlags, int(err.(unix.Errno)))
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return NewErrnoError(SetFileNonblocking, int(err.(unix.Errno)))
	}

	var buf [8]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if err == nil {
			if n == 0 {
				break
			}
			continue
		}
		if err == unix.EAGAIN {
			break
		}
		if err == unix.EINTR {
			continue
		}
		return NewErrnoError(DrainPipe, int(err.(unix.Errno)))
	}

	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags); err != nil {
		return NewErrnoError(RestoreFileFlags, int(err.(unix.Errno)))
	}
	return nil
}

// writeByte writes a single protocol byte to fd, retrying on interrupt. A
// one-byte write never completes partially, so any other outcome is an
// error.
func writeByte(fd int, b byte) *Error {
	buf := [1]byte{b}
	for {
		n, err := unix.Write(fd, buf[:])
		if err == nil && n == 1 {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return NewErrnoError(ProtocolWrite, int(err.(unix.Errno)))
		}
		return NewError(ProtocolWrite)
	}
}

// readByte reads a single protocol byte from fd, retrying on interrupt and
// mapping end-of-file to ProtocolReadEOF.
func readByte(fd int) (byte, *Error) {
	buf := [1]byte{}
	for {
		n, err := unix.Read(fd, buf[:])
		if err == nil {
			if n == 0 {
				return 0, NewError(ProtocolReadEOF)
			}
			return buf[0], nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, NewErrnoError(ProtocolRead, int(err.(unix.Errno)))
	}
}
