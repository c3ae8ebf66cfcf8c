//go:build linux || darwin

package chanselect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func makeTestPipe(t *testing.T) (readFD, writeFD int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_CLOEXEC))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestReadEventFulfillsOnExpectedByteCount(t *testing.T) {
	r, w := makeTestPipe(t)

	go func() {
		_, _ = unix.Write(w, []byte("hi"))
	}()

	var collected []byte
	want := 2
	handler := func(read ReadFunc) (ReadResult, error) {
		buf := make([]byte, 16)
		n, err := read(buf)
		if err != nil {
			return ReadContinue, err
		}
		collected = append(collected, buf[:n]...)
		if len(collected) >= want {
			return ReadFulfilled, nil
		}
		return ReadContinue, nil
	}

	idx, err := Select(Read(r, handler), Timeout(time.Second))
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, "hi", string(collected))
}

func TestReadEventTimesOutOnEmptyPipe(t *testing.T) {
	r, _ := makeTestPipe(t)

	handler := func(read ReadFunc) (ReadResult, error) {
		buf := make([]byte, 16)
		n, err := read(buf)
		if err != nil {
			return ReadContinue, err
		}
		if n > 0 {
			return ReadFulfilled, nil
		}
		return ReadContinue, nil
	}

	idx, err := Select(Read(r, handler), Timeout(20*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestWriteEventFulfillsOnFullWrite(t *testing.T) {
	r, w := makeTestPipe(t)

	payload := []byte("payload")
	written := 0
	handler := func(write WriteFunc) (WriteResult, error) {
		n, err := write(payload[written:])
		if err != nil {
			return WriteContinue, err
		}
		written += n
		if written >= len(payload) {
			return WriteFulfilled, nil
		}
		return WriteContinue, nil
	}

	idx, err := Select(Write(w, handler), Timeout(time.Second))
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	buf := make([]byte, len(payload))
	n, rerr := unix.Read(r, buf)
	require.NoError(t, rerr)
	require.Equal(t, payload, buf[:n])
}
