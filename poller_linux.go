//go:build linux

package ksched

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness backend: an edge-triggered, one-shot
// epoll instance. Each registered descriptor fires at most one event per
// arming; insert and addmode both (re-)arm it.
type epollPoller struct {
	epfd     int
	eventBuf [DefaultMaxEvents]unix.EpollEvent

	mu  sync.Mutex
	cbs []pollHandler

	errLog func(error)
}

func (p *epollPoller) setErrorLog(fn func(error)) { p.errLog = fn }

func newPoller() poller { return &epollPoller{epfd: -1} }

func (p *epollPoller) init() error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return wrapErr("poller.init", -1, err)
	}
	p.epfd = fd
	ignoreSIGPIPEOnce()
	return nil
}

func (p *epollPoller) destroy() error {
	if p.epfd < 0 {
		return nil
	}
	err := unix.Close(p.epfd)
	p.epfd = -1
	if err != nil {
		return wrapErr("poller.destroy", -1, err)
	}
	return nil
}

func (p *epollPoller) setCB(fd int, cb pollHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd >= len(p.cbs) {
		grown := make([]pollHandler, fd*2+1)
		copy(grown, p.cbs)
		p.cbs = grown
	}
	p.cbs[fd] = cb
}

func (p *epollPoller) getCB(fd int) pollHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 0 || fd >= len(p.cbs) {
		return nil
	}
	return p.cbs[fd]
}

func (p *epollPoller) clearCB(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd >= 0 && fd < len(p.cbs) {
		p.cbs[fd] = nil
	}
}

func modeToEpoll(mode Mode) uint32 {
	var ev uint32 = unix.EPOLLET | unix.EPOLLONESHOT
	if mode.has(ModeIn) {
		ev |= unix.EPOLLIN
	}
	if mode.has(ModeOut) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func epollToFlags(ev uint32) Flags {
	var f Flags
	if ev&unix.EPOLLIN != 0 {
		f |= FlagIn
	}
	if ev&unix.EPOLLOUT != 0 {
		f |= FlagOut
	}
	if ev&unix.EPOLLERR != 0 {
		f |= FlagErr
	}
	if ev&unix.EPOLLHUP != 0 {
		f |= FlagHup
	}
	return f
}

func (p *epollPoller) insert(fd int, mode Mode, cb pollHandler) error {
	p.setCB(fd, cb)
	ev := unix.EpollEvent{Events: modeToEpoll(mode), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		p.clearCB(fd)
		return wrapErr("poller.insert", fd, err)
	}
	return nil
}

func (p *epollPoller) addmode(fd int, mode Mode) error {
	ev := unix.EpollEvent{Events: modeToEpoll(mode), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return wrapErr("poller.addmode", fd, err)
	}
	return nil
}

func (p *epollPoller) remove(fd int) error {
	p.clearCB(fd)
	// EPOLL_CTL_DEL historically requires a non-nil (ignored) event pointer.
	ev := unix.EpollEvent{}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, &ev); err != nil {
		return wrapErr("poller.remove", fd, err)
	}
	return nil
}

func (p *epollPoller) wait(timeoutMs int) error {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		// Interrupted waits (and any other wait-time failure) are not
		// propagated: the design treats them as "no events this pass" so a
		// transient kernel error can't kill the loop. Still surfaced to the
		// diagnostic log sink, if one is installed.
		if p.errLog != nil {
			p.errLog(wrapErr("poller.wait", -1, err))
		}
		return nil
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		flags := epollToFlags(p.eventBuf[i].Events)
		if cb := p.getCB(fd); cb != nil {
			cb(fd, flags)
		}
	}
	return nil
}
