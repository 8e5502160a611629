//go:build darwin

package ksched

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the Darwin readiness backend: a kqueue instance armed
// EV_ONESHOT per filter, mirroring the one-shot contract of the Linux epoll
// backend. kqueue has no edge/level-triggered distinction to configure;
// EV_ONESHOT alone gives "fires at most once per arming".
type kqueuePoller struct {
	kq       int
	eventBuf [DefaultMaxEvents]unix.Kevent_t

	mu  sync.Mutex
	cbs []pollHandler

	errLog func(error)
}

func (p *kqueuePoller) setErrorLog(fn func(error)) { p.errLog = fn }

func newPoller() poller { return &kqueuePoller{kq: -1} }

func (p *kqueuePoller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return wrapErr("poller.init", -1, err)
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	ignoreSIGPIPEOnce()
	return nil
}

func (p *kqueuePoller) destroy() error {
	if p.kq < 0 {
		return nil
	}
	err := unix.Close(p.kq)
	p.kq = -1
	if err != nil {
		return wrapErr("poller.destroy", -1, err)
	}
	return nil
}

func (p *kqueuePoller) setCB(fd int, cb pollHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd >= len(p.cbs) {
		grown := make([]pollHandler, fd*2+1)
		copy(grown, p.cbs)
		p.cbs = grown
	}
	p.cbs[fd] = cb
}

func (p *kqueuePoller) getCB(fd int) pollHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 0 || fd >= len(p.cbs) {
		return nil
	}
	return p.cbs[fd]
}

func (p *kqueuePoller) clearCB(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd >= 0 && fd < len(p.cbs) {
		p.cbs[fd] = nil
	}
}

func modeToKevents(fd int, mode Mode, flags uint16) []unix.Kevent_t {
	var kevs []unix.Kevent_t
	if mode.has(ModeIn) {
		kevs = append(kevs, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if mode.has(ModeOut) {
		kevs = append(kevs, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevs
}

func (p *kqueuePoller) insert(fd int, mode Mode, cb pollHandler) error {
	p.setCB(fd, cb)
	kevs := modeToKevents(fd, mode, unix.EV_ADD|unix.EV_ENABLE|unix.EV_ONESHOT)
	if len(kevs) == 0 {
		return nil
	}
	if _, err := unix.Kevent(p.kq, kevs, nil, nil); err != nil {
		p.clearCB(fd)
		return wrapErr("poller.insert", fd, err)
	}
	return nil
}

// addmode re-arms the descriptor for exactly the requested mode. EV_ONESHOT
// filters disarm themselves after firing, but one that never fired (e.g. the
// previous wait ended by timeout) is still armed, so every filter not in the
// new mode is deleted first; ENOENT from deleting an absent one is ignored.
func (p *kqueuePoller) addmode(fd int, mode Mode) error {
	if !mode.has(ModeIn) {
		_, _ = unix.Kevent(p.kq, []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE}}, nil, nil)
	}
	if !mode.has(ModeOut) {
		_, _ = unix.Kevent(p.kq, []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE}}, nil, nil)
	}
	kevs := modeToKevents(fd, mode, unix.EV_ADD|unix.EV_ENABLE|unix.EV_ONESHOT)
	if len(kevs) == 0 {
		return nil
	}
	if _, err := unix.Kevent(p.kq, kevs, nil, nil); err != nil {
		return wrapErr("poller.addmode", fd, err)
	}
	return nil
}

func (p *kqueuePoller) remove(fd int) error {
	p.clearCB(fd)
	kevs := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Deleting a filter that was never added returns ENOENT; both halves
	// are attempted unconditionally and that failure mode is ignored.
	_, _ = unix.Kevent(p.kq, kevs, nil, nil)
	return nil
}

func keventToFlags(kev *unix.Kevent_t) Flags {
	var f Flags
	switch kev.Filter {
	case unix.EVFILT_READ:
		f |= FlagIn
	case unix.EVFILT_WRITE:
		f |= FlagOut
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		f |= FlagErr
	}
	if kev.Flags&unix.EV_EOF != 0 {
		f |= FlagHup
	}
	return f
}

func (p *kqueuePoller) wait(timeoutMs int) error {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64(timeoutMs%1000) * 1000000,
		}
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		// As with the Linux backend, an interrupted (or otherwise failed)
		// wait is reported as zero events rather than propagated, but still
		// surfaced to the diagnostic log sink if one is installed.
		if p.errLog != nil {
			p.errLog(wrapErr("poller.wait", -1, err))
		}
		return nil
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		flags := keventToFlags(&p.eventBuf[i])
		if cb := p.getCB(fd); cb != nil {
			cb(fd, flags)
		}
	}
	return nil
}
