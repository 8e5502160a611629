// Package ksched: readiness poller abstraction.
//
// # I/O readiness
//
// The scheduler multiplexes all parked tasks over one kernel-native
// readiness notifier, armed one-shot:
//   - Linux: epoll, also edge-triggered (see poller_linux.go)
//   - Darwin: kqueue (see poller_darwin.go)
//
// A descriptor registered via insert or addmode delivers at most one
// notification per arming; the socket that owns the descriptor is
// responsible for re-arming it (see Socket.waitIO).
package ksched

// Mode is the set of readiness conditions a descriptor is armed for.
type Mode uint8

const (
	// ModeIn indicates interest in read (or accept) readiness.
	ModeIn Mode = 1 << iota
	// ModeOut indicates interest in write (or connect-completion) readiness.
	ModeOut
)

func (m Mode) has(o Mode) bool { return m&o != 0 }

// Flags reports which conditions fired for a descriptor in a single pass.
// It is a superset of Mode, adding the transport-error and hangup bits the
// kernel can report independently of what was requested.
type Flags uint8

const (
	FlagIn Flags = 1 << iota
	FlagOut
	FlagErr
	FlagHup
)

func (f Flags) has(o Flags) bool { return f&o != 0 }

const (
	// DefaultMaxEvents is the default per-wait event batch size.
	DefaultMaxEvents = 128
	// DefaultIdleTimeoutMs is the driver's idle poll timeout when no task
	// is scheduled.
	DefaultIdleTimeoutMs = 1000
)

// pollHandler is invoked once per event the backend reports in a pass, with
// the flags of that event: on Linux one event carries all conditions for a
// descriptor, on Darwin the read and write filters arrive as separate events. The handler implements the re-lookup and
// dispatch rules of the component design (see Scheduler.dispatch); the
// poller backend itself knows nothing about tasks or sockets.
type pollHandler func(fd int, flags Flags)

// poller is the interface every readiness backend implements: init,
// destroy, insert, addmode (modify-mode), remove, wait.
type poller interface {
	init() error
	destroy() error
	insert(fd int, mode Mode, cb pollHandler) error
	addmode(fd int, mode Mode) error
	remove(fd int) error
	// wait blocks for up to timeoutMs, or until at least one descriptor is
	// ready, dispatching cb for each. A negative timeoutMs blocks
	// indefinitely. An interrupted wait is not an error: it is reported as
	// zero events, matching the design's "interrupted wait" non-error
	// classification.
	wait(timeoutMs int) error
	// setErrorLog installs a sink for wait-time errors that are otherwise
	// discarded (see the "interrupted wait" classification above). Passing
	// nil disables logging. Unlike the error classification itself, this is
	// purely diagnostic and never changes control flow.
	setErrorLog(fn func(error))
}
