//go:build linux || darwin

package ksched

import (
	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD reads from a file descriptor.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD writes to a file descriptor.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

// setNonblock puts fd into non-blocking mode. All descriptors opened by this
// package are non-blocking; the library does not otherwise alter descriptor
// flags a caller passes in (e.g. via Open).
func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
