package ksched

import (
	"sync/atomic"
	"time"
)

// DefaultStackSize is retained for interface fidelity with the design this
// package generalizes: a fixed per-task stack size. Go's runtime grows and
// shrinks goroutine stacks automatically, so this constant is not used to
// size anything; it documents the default the source system used and is the
// value a Scheduler records when WithStackSize is not given.
const DefaultStackSize = 64 * 1024

var taskIDs atomic.Uint64

// Task is a stackful coroutine owned by exactly one Scheduler. It is
// realized as a dedicated goroutine, woken and parked by the Scheduler
// through a strict baton handoff (resumeCh/yieldCh/doneCh below) rather
// than a hand-rolled register-and-stack context switch: Go's goroutines are
// the native stackful-coroutine primitive, so bootstrapping one onto a
// fresh stack is just `go func() { ... }()`, and "swap" is a pair of
// channel operations that guarantee at most one task's goroutine is ever
// runnable at a time.
//
// A Task is either running (at most one per Scheduler), scheduled (present
// in the scheduler's timer heap with a pending target time), or parked
// (held by a Socket, off the heap, waiting for an external resume). It is
// destroyed exactly once, when its entry function returns.
type Task struct {
	id    uint64
	sched *Scheduler
	fn    func(*Task)

	// Timer-heap bookkeeping. Valid only while scheduled is true.
	target    timerKey
	heapIndex int
	scheduled bool

	// parkedOn is non-nil while a Socket holds this task parked on a
	// descriptor; it gives the timer-expiry path (Scheduler.Advance) a way
	// to detach the task from its socket when a timeout races a readiness
	// event, and vice versa (see Socket.waitIO).
	parkedOn *Socket

	// timedOut is set immediately before resuming a task whose
	// resumption was caused by the timer heap rather than a poller event
	// or explicit Run; Socket.waitIO reads it to distinguish a timeout
	// from a readiness-driven resume.
	timedOut bool

	destroyed bool

	resumeCh chan struct{} // send: wake this task's goroutine
	yieldCh  chan struct{} // recv (by Scheduler.runTask): task suspended without finishing
	doneCh   chan struct{} // closed when fn returns: task finished
}

// ID returns a small, scheduler-unique, process-lifetime-unique identifier,
// suitable for log correlation.
func (t *Task) ID() uint64 { return t.id }

// newTask allocates a Task and bootstraps its goroutine. The goroutine
// blocks immediately on resumeCh, mirroring "bootstrap prepares ctx so the
// first swap begins executing entry(arg)" — nothing runs until the first
// Scheduler.Run/Advance resumes it.
func newTask(sched *Scheduler, fn func(*Task)) *Task {
	t := &Task{
		id:        taskIDs.Add(1),
		sched:     sched,
		fn:        fn,
		heapIndex: -1,
		resumeCh:  make(chan struct{}),
		yieldCh:   make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go func() {
		<-t.resumeCh
		t.fn(t)
		close(t.doneCh)
	}()
	return t
}

// yield hands control back to whichever goroutine is blocked in
// Scheduler.runTask for this task (normally the scheduler's loop goroutine,
// but a task synchronously running a child task via Scheduler.Run is also
// valid), then blocks until the next resume. It is the one primitive
// underlying Wait and Release.
func (t *Task) yield() {
	t.yieldCh <- struct{}{}
	<-t.resumeCh
}

// Create allocates a task parented to the scheduler's main context (the
// goroutine that owns the Scheduler) and bootstraps it. The new task is
// neither scheduled nor running until Schedule, Start, or Run is used.
func (s *Scheduler) Create(fn func(*Task)) *Task {
	return newTask(s, fn)
}

// Schedule arranges for t to resume. If t is already scheduled it is first
// removed and reinserted at the new target. A nil when means "run on the
// next driver pass" (target time zero, the earliest possible key).
func (s *Scheduler) Schedule(t *Task, when *time.Time) error {
	if t == nil || t.destroyed {
		return wrapErr("schedule", -1, ErrInvalidTask)
	}
	if t.scheduled {
		s.timers.removeTask(t)
		t.scheduled = false
	}
	var target time.Time
	if when != nil {
		target = *when
	}
	t.target = timerKeyFor(target, s.nextSeq())
	t.scheduled = true
	s.timers.insertTask(t)
	return nil
}

// Unschedule removes t from the timer heap if present. Idempotent.
func (s *Scheduler) Unschedule(t *Task) {
	if t == nil || !t.scheduled {
		return
	}
	s.timers.removeTask(t)
	t.scheduled = false
}

// Start creates a task parented to main and schedules it immediately: a
// fire-and-forget convenience for kicking off work from the scheduler's
// owning goroutine.
func (s *Scheduler) Start(fn func(*Task)) error {
	t := s.Create(fn)
	return s.Schedule(t, nil)
}

// Run switches to t and blocks the caller until t next suspends (Wait,
// Release, or a Socket wait point) or its entry function returns. It must
// be called from the context t should return control to: normally the
// scheduler's owning goroutine, but also validly another task
// synchronously running a child (the "nested run" pattern).
//
// Returns 1 if t's entry function returned (t is now destroyed), 0 if t
// merely suspended, or -1 (with an error) if t is nil, destroyed, or
// already running.
func (s *Scheduler) Run(t *Task) (int, error) {
	if t == nil || t.destroyed || t == s.current {
		return -1, wrapErr("run", -1, ErrInvalidTask)
	}
	prev := s.current
	s.current = t
	t.resumeCh <- struct{}{}
	select {
	case <-t.yieldCh:
		s.current = prev
		return 0, nil
	case <-t.doneCh:
		s.current = prev
		t.destroyed = true
		s.logTaskDestroyed(t)
		return 1, nil
	}
}

// Wait schedules the currently-running task and yields. ms==0 yields to any
// other task already due this pass (target time equal to "now"); ms>0
// targets clock+ms. Must be called from within a task's own goroutine.
func (s *Scheduler) Wait(t *Task, ms int64) {
	var when *time.Time
	if ms > 0 {
		target := s.clock.Add(time.Duration(ms) * time.Millisecond)
		when = &target
	} else {
		target := s.clock
		when = &target
	}
	_ = s.Schedule(t, when)
	t.yield()
}

// Release yields the current task without scheduling it. The task becomes
// parked — nothing will resume it until something calls Scheduler.Run (or a
// Socket operation) on it explicitly.
func (s *Scheduler) Release(t *Task) {
	t.yield()
}

// Advance runs every task whose target time has arrived (scheduled flag
// true, target <= clock), in heap order, and returns the number of
// milliseconds until the next scheduled task, or the scheduler's configured
// idle timeout if none remain.
func (s *Scheduler) Advance() int {
	for {
		top := s.timers.peek()
		if top == nil {
			return s.idleTimeoutMs
		}
		nowSec, nowUsec := splitClock(s.clock)
		if top.target.sec > nowSec || (top.target.sec == nowSec && top.target.usec > nowUsec) {
			deltaMs := (top.target.sec-nowSec)*1000 + (top.target.usec-nowUsec)/1000
			if deltaMs < 0 {
				deltaMs = 0
			}
			return int(deltaMs)
		}

		s.timers.removeTask(top)
		top.scheduled = false
		if top.parkedOn != nil {
			sock := top.parkedOn
			sock.parked = nil
			top.parkedOn = nil
		}
		s.runTask(top, true)
	}
}

// runTask sets the timed-out flag appropriate to the resumption source and
// switches to t, logging and ignoring Run's return value beyond destroying
// finished tasks (already handled by Run itself).
func (s *Scheduler) runTask(t *Task, timedOut bool) {
	t.timedOut = timedOut
	if _, err := s.Run(t); err != nil {
		s.logf(nil, "task resume rejected: %v", err)
	}
}

func splitClock(t time.Time) (sec, usec int64) {
	return t.Unix(), int64(t.Nanosecond() / 1000)
}

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}
