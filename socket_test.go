package ksched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// Timeout on read: open a pipe pair; a task reads from the empty read end
// with a 50ms timeout. Expected: ErrTimedOut, elapsed >= 50ms less 5ms of
// slack (the deadline counts from the pass's clock snapshot, taken before
// the task starts its own stopwatch).
func TestSocketReadTimeout(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[1])

	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	rsock, err := Open(s, fds[0])
	require.NoError(t, err)
	defer rsock.Close()

	var readErr error
	var elapsed time.Duration

	require.NoError(t, s.Start(func(tk *Task) {
		start := time.Now()
		buf := make([]byte, 16)
		_, readErr = rsock.Read(buf, 50*time.Millisecond)
		elapsed = time.Since(start)
		s.Stop()
	}))

	require.NoError(t, s.Loop())
	require.ErrorIs(t, readErr, ErrTimedOut)
	require.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
}

// Peer close: a task writes to a socket whose peer has closed; the first
// write must return an error without killing the process (SIGPIPE ignored).
func TestWriteToClosedPeer(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	sock, err := Open(s, fds[0])
	require.NoError(t, err)
	defer sock.Close()
	require.NoError(t, unix.Close(fds[1]))

	var writeErr error
	require.NoError(t, s.Start(func(tk *Task) {
		_, writeErr = sock.Write([]byte("hello"), 0)
		s.Stop()
	}))

	require.NoError(t, s.Loop())
	require.Error(t, writeErr)
}

// Close inside handler: task A parked on descriptor D; a readiness event
// for D fires; A's handler closes D. No crash even though the dispatch
// rule re-checks for OUT/ERR/HUP after delivering IN.
func TestCloseInsideHandler(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	sock, err := Open(s, fds[0])
	require.NoError(t, err)
	defer unix.Close(fds[1])

	done := make(chan struct{})
	var readErr error

	require.NoError(t, s.Start(func(tk *Task) {
		buf := make([]byte, 16)
		_, readErr = sock.Read(buf, 0)
		require.NoError(t, sock.Close())
		close(done)
		s.Stop()
	}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = unix.Write(fds[1], []byte("x"))
	}()

	require.NoError(t, s.Loop())
	<-done
	require.NoError(t, readErr)
}

// Single-waiter invariant: waitIO rejects a second parked task on the same
// socket.
func TestSocketRejectsDoubleWait(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[1])

	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	sock, err := Open(s, fds[0])
	require.NoError(t, err)
	defer sock.Close()

	var secondErr error
	// First task parks on sock and stays parked (timeout long enough that
	// the test's own Stop wins the race).
	require.NoError(t, s.Start(func(tk *Task) {
		_ = sock.waitIO(ModeIn, 200*time.Millisecond)
	}))
	// Second task, scheduled for the same pass, attempts to park on the
	// same already-parked socket and must be rejected immediately.
	require.NoError(t, s.Start(func(tk *Task) {
		secondErr = sock.waitIO(ModeIn, 0)
		s.Stop()
	}))

	require.NoError(t, s.Loop())
	require.ErrorIs(t, secondErr, ErrAlreadyParked)
}
