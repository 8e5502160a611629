package ksched

import (
	"time"
)

// Scheduler is a single-threaded, cooperative driver binding a task timer
// heap to a readiness poller and a descriptor table. At any moment exactly
// one goroutine — whichever calls Loop, Advance, or Run, or the task
// goroutine it has handed control to — may touch a given Scheduler; there is
// no internal locking because none is required when that invariant holds.
type Scheduler struct {
	clock  time.Time
	seq    uint64
	timers timerHeap

	current *Task // nil while the owning goroutine (not a task) is in control

	descriptors fdTable
	poller      poller

	logger Logger

	idleTimeoutMs int
	stackSize     int

	running bool
	closed  bool
	stop    bool
}

// New builds a Scheduler with its readiness poller initialized, ready for
// Create/Start and Loop.
func New(opts ...Option) (*Scheduler, error) {
	cfg := resolveOptions(opts)
	s := &Scheduler{
		clock:         time.Now(),
		poller:        newPoller(),
		logger:        cfg.logger,
		idleTimeoutMs: cfg.idleTimeoutMs,
		stackSize:     cfg.stackSize,
	}
	if s.logger == nil {
		s.logger = noopLogger()
	}
	s.poller.setErrorLog(func(err error) {
		s.logDebugf("poll wait error (suppressed, no events dispatched): %v", err)
	})
	if err := s.poller.init(); err != nil {
		return nil, err
	}
	s.logf(nil, "scheduler initialized")
	return s, nil
}

// Current returns the task presently running on this scheduler, or nil if
// the owning goroutine itself is in control (not inside any task).
func (s *Scheduler) Current() *Task { return s.current }

// NumPending returns the number of tasks currently scheduled (present in
// the timer heap, awaiting their target time).
func (s *Scheduler) NumPending() int { return len(s.timers) }

// Stop requests that Loop exit after finishing its current pass. Tasks
// still scheduled or parked are not destroyed by Stop; Close releases the
// scheduler's own resources once the loop has exited.
func (s *Scheduler) Stop() { s.stop = true }

// Close tears down the poller. It does not close sockets or destroy tasks
// still outstanding; callers are responsible for their own teardown order.
func (s *Scheduler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.poller.destroy()
}

// Loop runs passes of (advance timers, poll readiness) until Stop is
// called. It returns ErrLoopRunning if re-entered while already running
// (e.g. a task calling sched.Loop on itself).
func (s *Scheduler) Loop() error {
	if s.running {
		return wrapErr("loop", -1, ErrLoopRunning)
	}
	s.running = true
	defer func() { s.running = false }()

	for !s.stop {
		s.clock = time.Now()
		timeoutMs := s.Advance()
		if s.stop {
			break
		}
		if err := s.poller.wait(timeoutMs); err != nil {
			s.logf(nil, "poll wait error: %v", err)
		}
	}
	return nil
}

// dispatch implements the three-step re-lookup/resume rule for a single
// reported descriptor: IN, then (re-lookup) OUT, then (re-lookup) ERR/HUP.
// Each step re-reads the descriptor table because the previous resumption
// may have closed and freed the socket.
func (s *Scheduler) dispatch(fd int, flags Flags) {
	if flags.has(FlagIn) {
		if sock := s.descriptors.get(fd); sock != nil {
			sock.lastErr = nil
			s.resumeParked(sock)
		}
	}
	if flags.has(FlagOut) {
		if sock := s.descriptors.get(fd); sock != nil {
			sock.lastErr = nil
			s.resumeParked(sock)
		}
	}
	if flags.has(FlagErr) || flags.has(FlagHup) {
		if sock := s.descriptors.get(fd); sock != nil {
			sock.lastErr = ErrReset
			s.resumeParked(sock)
		}
	}
}

// resumeParked detaches the socket's parked task (if any), removes it from
// the timer heap (it is resuming for readiness, not timeout), and runs it.
func (s *Scheduler) resumeParked(sock *Socket) {
	t := sock.parked
	if t == nil {
		return
	}
	sock.parked = nil
	t.parkedOn = nil
	s.Unschedule(t)
	s.runTask(t, false)
}

func (s *Scheduler) logf(t *Task, format string, args ...any) {
	b := s.logger.Info()
	if !b.Enabled() {
		return
	}
	if t != nil {
		b = b.Uint64("task", t.id)
	}
	b.Logf(format, args...)
}

func (s *Scheduler) logTaskDestroyed(t *Task) {
	s.logf(t, "task finished")
}

func (s *Scheduler) logDebugf(format string, args ...any) {
	b := s.logger.Debug()
	if !b.Enabled() {
		return
	}
	b.Logf(format, args...)
}
