// Package ksched provides a single-threaded, cooperative I/O scheduler built
// around stackful tasks multiplexed over a readiness-based event notifier.
//
// # Architecture
//
// A [Scheduler] owns three collaborating pieces:
//
//   - a task driver ([Task], [Scheduler.Create], [Scheduler.Wait],
//     [Scheduler.Release]) with a time-ordered heap of pending resumptions,
//   - a readiness poller abstraction, backed on Linux by an edge-triggered,
//     one-shot epoll instance,
//   - a [Socket] object binding one descriptor to the task currently parked
//     on it, so readiness events translate directly into task resumptions.
//
// Tasks are realized as goroutines under a strict baton-passing discipline:
// at most one task's goroutine is ever runnable at a time, woken and parked
// via unbuffered channels rather than OS-level stack switching. This gives
// the cooperative semantics the design calls for (no preemption, explicit
// yield points) using Go's native stackful-coroutine primitive instead of a
// hand-rolled context swap.
//
// # Platform support
//
// The readiness poller is implemented using the kernel-native mechanism:
//   - Linux: epoll, armed edge-triggered and one-shot
//   - Darwin: kqueue, armed one-shot via EV_ONESHOT
//
// # Thread safety
//
// A [Scheduler] is not safe for concurrent use. At any moment exactly one
// goroutine drives it: the goroutine that calls [Scheduler.Loop] (or
// [Scheduler.Advance] / [Scheduler.Run] directly), or the task goroutine it
// has handed control to. Tasks suspend and resume cooperatively through
// three primitives only: [Scheduler.Wait], [Scheduler.Release], and
// [Socket.waitIO]. Sharing one Scheduler across OS threads is unsupported.
//
// # Usage
//
//	sched, err := ksched.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.Close()
//
//	if err := sched.Start(func(t *ksched.Task) {
//	    fmt.Println("hello from a task")
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	sched.Loop()
package ksched
