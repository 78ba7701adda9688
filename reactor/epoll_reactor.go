//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/momentics/hioload-rtm/api"
	"golang.org/x/sys/unix"
)

// epollReactor implements api.Reactor using level-triggered Linux epoll.
type epollReactor struct {
	epfd   int // epoll file descriptor
	wakemu sync.Mutex
	wakefd int // eventfd used by Wake, -1 once closed
	tbl    *table
	events [maxEvents]unix.EpollEvent
	batch  []api.Readiness
}

// New creates a new epoll-backed reactor.
func New() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.TransportFault("epoll create", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, api.TransportFault("eventfd", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, api.TransportFault("epoll ctl add", err)
	}
	return &epollReactor{
		epfd:   epfd,
		wakefd: wakefd,
		tbl:    newTable(),
		batch:  make([]api.Readiness, 0, maxEvents*3),
	}, nil
}

var wakeToken = [8]byte{1}

// Wake bumps the eventfd counter.
func (r *epollReactor) Wake() error {
	r.wakemu.Lock()
	defer r.wakemu.Unlock()
	if r.wakefd < 0 {
		return api.ErrTransportClosed
	}
	_, err := unix.Write(r.wakefd, wakeToken[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return api.TransportFault("eventfd write", err)
	}
	return nil
}

func (r *epollReactor) Register(fd int, in api.Interest) error { return r.tbl.register(fd, in) }
func (r *epollReactor) Pause(fd int, in api.Interest) error    { return r.tbl.pause(fd, in) }
func (r *epollReactor) Resume(fd int, in api.Interest) error   { return r.tbl.resume(fd, in) }

// Unregister removes a file descriptor from the epoll watch list right away.
func (r *epollReactor) Unregister(fd int) error {
	st, ok := r.tbl.unregister(fd)
	if !ok || !st.added {
		return nil
	}
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func epollMask(in api.Interest) uint32 {
	// RDHUP is always on so a half-close surfaces as an error event.
	mask := uint32(unix.EPOLLRDHUP)
	if in&api.InterestRead != 0 {
		mask |= unix.EPOLLIN
	}
	if in&api.InterestWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (r *epollReactor) apply(fd int, st *fdState) error {
	eff := st.effective()
	if st.added && st.kernel == eff {
		return nil
	}
	ev := unix.EpollEvent{Events: epollMask(eff), Fd: int32(fd)}
	op := unix.EPOLL_CTL_MOD
	if !st.added {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(r.epfd, op, fd, &ev); err != nil {
		return err
	}
	st.added = true
	st.kernel = eff
	return nil
}

// Poll applies pending changes, then blocks until events arrive.
func (r *epollReactor) Poll(cb func(api.Readiness) error) error {
	r.tbl.flush(r.apply)
	batch := r.tbl.beginBatch(r.batch[:0])

	timeout := -1
	if len(batch) > 0 {
		timeout = 0
	}
	n, err := unix.EpollWait(r.epfd, r.events[:], timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			n = 0 // interrupted by signal, normal
		} else {
			return api.TransportFault("epoll wait", err)
		}
	}

	for i := 0; i < n; i++ {
		ev := r.events[i]
		fd := int(ev.Fd)
		if fd == r.wakefd {
			var drain [8]byte
			unix.Read(r.wakefd, drain[:])
			continue
		}
		if ev.Events&unix.EPOLLIN != 0 {
			batch = append(batch, api.Readiness{Kind: api.EventRead, Fd: fd})
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			batch = append(batch, api.Readiness{Kind: api.EventWrite, Fd: fd})
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			batch = append(batch, api.Readiness{Kind: api.EventError, Fd: fd})
		}
	}
	r.batch = batch
	return r.tbl.deliver(batch, cb)
}

// Close releases the epoll and eventfd descriptors.
func (r *epollReactor) Close() error {
	r.wakemu.Lock()
	unix.Close(r.wakefd)
	r.wakefd = -1
	r.wakemu.Unlock()
	return unix.Close(r.epfd)
}
