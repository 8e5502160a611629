//go:build linux || darwin

package ksched

import (
	"os/signal"
	"sync"
	"syscall"
)

var ignoreSIGPIPE sync.Once

// ignoreSIGPIPEOnce installs a process-global ignore for SIGPIPE, so that a
// write to a socket whose peer has closed surfaces as an error return from
// the write syscall rather than terminating the process. It is idempotent:
// safe to call from every poller backend's init, even across multiple schedulers in
// the same process.
func ignoreSIGPIPEOnce() {
	ignoreSIGPIPE.Do(func() {
		signal.Ignore(syscall.SIGPIPE)
	})
}
