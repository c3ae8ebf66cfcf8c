//go:build linux || darwin

package chanselect

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollEntry describes one file-based candidate passed to the OS poll
// primitive for a single doPoll pass, plus (after osPoll returns) which of
// the readiness conditions the kernel reported for it.
type pollEntry struct {
	record *pollRecord
	fd     int
	read   bool
	write  bool

	revRead, revWrite, revHangup, revError, revInvalid bool
}

// pollErr reports a failure from the OS poll primitive; interrupted
// distinguishes EINTR (not an error condition: the caller should just try
// again) from every other errno (which the Selector raises as Poll).
type pollErr struct {
	interrupted bool
	errno       int
}

// osPoll blocks until one of entries' file descriptors becomes ready for
// its requested direction(s), or timeoutMs elapses (a negative value blocks
// indefinitely). It returns the number of ready descriptors and mutates
// each entry's rev* fields in place to record what became ready.
func osPoll(entries []pollEntry, timeoutMs int) (int, *pollErr) {
	if len(entries) == 0 {
		// Selecting over only timeout/deadline events: nothing to poll, so
		// just sleep out the requested duration. doPoll always derives
		// timeoutMs from a real expiration here (every record is either
		// file-backed or timeout-backed, and Select requires at least one
		// record), so timeoutMs is never negative in this branch; the sleep
		// is still bounded defensively rather than blocking forever.
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return 0, nil
	}

	fds := make([]unix.PollFd, len(entries))
	for i, e := range entries {
		var events int16
		if e.read {
			events |= unix.POLLIN
		}
		if e.write {
			events |= unix.POLLOUT
		}
		fds[i] = unix.PollFd{Fd: int32(e.fd), Events: events}
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, &pollErr{interrupted: true}
		}
		return 0, &pollErr{errno: int(err.(unix.Errno))}
	}

	for i := range fds {
		rev := fds[i].Revents
		if rev == 0 {
			continue
		}
		entries[i].revRead = rev&unix.POLLIN != 0
		entries[i].revWrite = rev&unix.POLLOUT != 0
		entries[i].revHangup = rev&unix.POLLHUP != 0
		entries[i].revError = rev&unix.POLLERR != 0
		entries[i].revInvalid = rev&unix.POLLNVAL != 0
	}

	return n, nil
}
