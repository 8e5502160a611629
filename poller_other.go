//go:build !linux && !darwin

package ksched

import "errors"

// No readiness backend is implemented for this platform: init, insert,
// addmode and wait all return errUnsupportedPlatform, so New fails. The
// package as a whole does not compile here either, because socket.go uses
// the descriptor helpers of fd_unix.go, which exist only for Linux and
// Darwin.
var errUnsupportedPlatform = errors.New("ksched: no readiness poller backend for this platform")

type unsupportedPoller struct{}

func newPoller() poller { return &unsupportedPoller{} }

func (unsupportedPoller) init() error    { return errUnsupportedPlatform }
func (unsupportedPoller) destroy() error { return nil }
func (unsupportedPoller) insert(int, Mode, pollHandler) error {
	return errUnsupportedPlatform
}
func (unsupportedPoller) addmode(int, Mode) error { return errUnsupportedPlatform }
func (unsupportedPoller) remove(int) error        { return nil }
func (unsupportedPoller) wait(int) error          { return errUnsupportedPlatform }
func (unsupportedPoller) setErrorLog(func(error)) {}
