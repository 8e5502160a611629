package ksched

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// Socket couples one descriptor to at most one parked task on one
// Scheduler. It is the only thing that turns a readiness event into a task
// resumption; Scheduler.dispatch and Scheduler.Advance call back into it,
// but every Socket method itself runs on, and may only be called from, the
// scheduler's owning goroutine (or, for the blocking operations, a task
// running on it).
type Socket struct {
	fd     int
	sched  *Scheduler
	parked *Task

	registered bool
	mode       Mode
	lastErr    error
	closed     bool
}

// Open adopts an already-created descriptor: puts it in non-blocking mode
// and registers it in the scheduler's descriptor table. It is not yet
// registered with the poller — that happens lazily on the first waitIO.
//
// Creating the underlying descriptor (socket/listen/bind) is left to the
// caller; this package's contract starts at "a non-blocking descriptor
// exists", not at address-family/protocol convenience wrappers.
func Open(sched *Scheduler, fd int) (*Socket, error) {
	if err := setNonblock(fd); err != nil {
		return nil, wrapErr("open", fd, err)
	}
	s := &Socket{fd: fd, sched: sched}
	sched.descriptors.set(fd, s)
	sched.logf(nil, "socket %d opened", fd)
	return s, nil
}

// FD returns the underlying descriptor.
func (s *Socket) FD() int { return s.fd }

// Close deregisters the descriptor from the poller and descriptor table and
// closes it. If a task is parked, it is detached and immediately resumed,
// observing ErrClosed from the waitIO it was blocked in. Close is
// idempotent.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.registered {
		_ = s.sched.poller.remove(s.fd)
		s.registered = false
	}
	s.sched.descriptors.delete(s.fd)
	err := closeFD(s.fd)
	s.sched.logf(nil, "socket %d closed", s.fd)

	if t := s.parked; t != nil {
		s.parked = nil
		t.parkedOn = nil
		s.sched.Unschedule(t)
		s.lastErr = ErrClosed
		s.sched.runTask(t, false)
	}
	if err != nil {
		return wrapErr("close", s.fd, err)
	}
	return nil
}

// waitIO is the core suspension primitive: it arms (or re-arms) the poller
// for mode, parks the calling task on this socket, optionally schedules a
// timeout, and releases the scheduler. On resumption it distinguishes
// timeout, a pending socket error, and plain readiness.
//
// At most one task may be parked on a socket: waitIO returns
// ErrAlreadyParked, without arming anything, while another task is parked.
func (s *Socket) waitIO(mode Mode, timeout time.Duration) error {
	if s.closed {
		return wrapErr("waitio", s.fd, ErrClosed)
	}
	if s.parked != nil {
		return wrapErr("waitio", s.fd, ErrAlreadyParked)
	}
	cur := s.sched.current
	if cur == nil {
		return wrapErr("waitio", s.fd, ErrInvalidTask)
	}

	if !s.registered {
		if err := s.sched.poller.insert(s.fd, mode, s.sched.dispatch); err != nil {
			return wrapErr("waitio", s.fd, err)
		}
		s.registered = true
	} else if err := s.sched.poller.addmode(s.fd, mode); err != nil {
		return wrapErr("waitio", s.fd, err)
	}
	s.mode = mode

	s.parked = cur
	cur.parkedOn = s

	if timeout > 0 {
		deadline := s.sched.clock.Add(timeout)
		_ = s.sched.Schedule(cur, &deadline)
	}

	s.sched.Release(cur)

	if cur.timedOut {
		return wrapErr("waitio", s.fd, ErrTimedOut)
	}
	if s.lastErr != nil {
		err := s.lastErr
		s.lastErr = nil
		return wrapErr("waitio", s.fd, err)
	}
	return nil
}

// Read reads into buf, parking on readiness at most once per call (short
// reads are returned as-is; callers loop for more).
func (s *Socket) Read(buf []byte, timeout time.Duration) (int, error) {
	n, err := readFD(s.fd, buf)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, unix.EAGAIN) {
		return 0, wrapErr("read", s.fd, err)
	}
	if err := s.waitIO(ModeIn, timeout); err != nil {
		return 0, err
	}
	n, err = readFD(s.fd, buf)
	if err != nil {
		return 0, wrapErr("read", s.fd, err)
	}
	return n, nil
}

// Write writes from buf, parking on readiness at most once per call.
func (s *Socket) Write(buf []byte, timeout time.Duration) (int, error) {
	n, err := writeFD(s.fd, buf)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, unix.EAGAIN) {
		return 0, wrapErr("write", s.fd, err)
	}
	if err := s.waitIO(ModeOut, timeout); err != nil {
		return 0, err
	}
	n, err = writeFD(s.fd, buf)
	if err != nil {
		return 0, wrapErr("write", s.fd, err)
	}
	return n, nil
}

// Accept waits for a connection on a listening socket and returns a new
// Socket wrapping the accepted descriptor.
func (s *Socket) Accept(timeout time.Duration) (*Socket, error) {
	fd, _, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if !errors.Is(err, unix.EAGAIN) {
			return nil, wrapErr("accept", s.fd, err)
		}
		if err := s.waitIO(ModeIn, timeout); err != nil {
			return nil, err
		}
		fd, _, err = unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			return nil, wrapErr("accept", s.fd, err)
		}
	}
	return Open(s.sched, fd)
}

// Connect issues a connect(2) against addr, waiting for write-readiness if
// the connection attempt is in progress, then inspecting the socket-level
// error before returning.
func (s *Socket) Connect(addr unix.Sockaddr, timeout time.Duration) error {
	err := unix.Connect(s.fd, addr)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EINPROGRESS) {
		return wrapErr("connect", s.fd, err)
	}
	if err := s.waitIO(ModeOut, timeout); err != nil {
		return err
	}
	errno, gerr := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if gerr != nil {
		return wrapErr("connect", s.fd, gerr)
	}
	if errno != 0 {
		return wrapErr("connect", s.fd, unix.Errno(errno))
	}
	return nil
}
