// Package ksched: error types and wrapping, grounded on the cause-chain
// conventions the rest of this codebase uses.
package ksched

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped in an *OpError) by scheduler and socket
// operations. Test with errors.Is, not direct comparison.
var (
	// ErrClosed is returned by operations on a socket that has already been
	// closed.
	ErrClosed = errors.New("ksched: closed")

	// ErrTimedOut is returned by Socket.waitIO, and so by Read/Write/Accept/
	// Connect, when the requested deadline elapses before readiness or a
	// transport error is observed. Never returned when the timeout is zero.
	ErrTimedOut = errors.New("ksched: i/o timeout")

	// ErrReset is surfaced to a parked task when the poller reports ERR or
	// HUP for its descriptor.
	ErrReset = errors.New("ksched: connection reset")

	// ErrAlreadyParked is returned when waitIO is called on a socket that
	// already has a task parked on it. At most one task may be parked on a
	// socket at a time.
	ErrAlreadyParked = errors.New("ksched: socket already has a parked task")

	// ErrInvalidTask is returned by Run when called with a nil, destroyed,
	// or already-running task.
	ErrInvalidTask = errors.New("ksched: invalid task")

	// ErrLoopRunning is returned by Loop if it is re-entered from within
	// its own pass (e.g. a task calling sched.Loop on itself).
	ErrLoopRunning = errors.New("ksched: loop is already running")
)

// OpError annotates a sentinel (or kernel) error with the operation and,
// for socket-level failures, the descriptor involved. FD is -1 when the
// operation has no associated descriptor (0 is a legitimate fd, e.g. stdin,
// and must not be mistaken for "absent").
type OpError struct {
	Op  string
	FD  int
	Err error
}

func (e *OpError) Error() string {
	if e.FD >= 0 {
		return fmt.Sprintf("ksched: %s (fd %d): %v", e.Op, e.FD, e.Err)
	}
	return fmt.Sprintf("ksched: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying sentinel/kernel error for errors.Is/As.
func (e *OpError) Unwrap() error { return e.Err }

// wrapErr is a convenience constructor for OpError.
func wrapErr(op string, fd int, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, FD: fd, Err: err}
}
