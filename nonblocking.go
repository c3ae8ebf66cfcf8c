//go:build linux || darwin

package chanselect

import "golang.org/x/sys/unix"

// fileNonblockingGuard puts a file descriptor into non-blocking mode for the
// duration of a ReadEvent/WriteEvent handler call, restoring its original
// flags afterward. Grounded on original_source's
// chan/files/filenonblockingguard.{h,cpp}.
type fileNonblockingGuard struct {
	fd    int
	flags int
}

func newFileNonblockingGuard(fd int) (*fileNonblockingGuard, *Error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return nil, NewErrnoError(GetFileFlags, int(err.(unix.Errno)))
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return nil, NewErrnoError(SetFileNonblocking, int(err.(unix.Errno)))
	}
	return &fileNonblockingGuard{fd: fd, flags: flags}, nil
}

func (g *fileNonblockingGuard) restore() *Error {
	if _, err := unix.FcntlInt(uintptr(g.fd), unix.F_SETFL, g.flags); err != nil {
		return NewErrnoError(RestoreFileFlags, int(err.(unix.Errno)))
	}
	return nil
}

// readFile reads at most len(dst) bytes from fd into dst, retrying on
// interrupt and treating EAGAIN/EWOULDBLOCK and EOF both as "no more
// available right now" rather than an error. It returns the number of bytes
// actually read, which may be less than len(dst) or zero.
func readFile(fd int, dst []byte) (int, *Error) {
	total := 0
	for total < len(dst) {
		n, err := unix.Read(fd, dst[total:])
		if err == nil {
			if n == 0 {
				break // end of file
			}
			total += n
			continue
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			break
		}
		return total, NewErrnoError(Read, int(err.(unix.Errno)))
	}
	return total, nil
}

// writeFile writes at most len(src) bytes from src to fd, retrying on
// interrupt and treating EAGAIN/EWOULDBLOCK and EPIPE both as "can't write
// right now" rather than an error, since WriteEvent's caller handles a
// stalled write with a backoff timeout rather than failing the Select call.
func writeFile(fd int, src []byte) (int, *Error) {
	if len(src) == 0 {
		return 0, nil
	}
	total := 0
	for total < len(src) {
		n, err := unix.Write(fd, src[total:])
		if err == nil {
			total += n
			continue
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EPIPE {
			break
		}
		return total, NewErrnoError(Write, int(err.(unix.Errno)))
	}
	return total, nil
}
