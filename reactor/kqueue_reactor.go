//go:build darwin || freebsd

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - kqueue implementation for macOS and FreeBSD.

package reactor

import (
	"errors"
	"sync"

	"github.com/momentics/hioload-rtm/api"
	"golang.org/x/sys/unix"
)

// kqueueReactor implements api.Reactor with one kqueue filter per interest.
// Pause and resume map to EV_DISABLE and EV_ENABLE.
type kqueueReactor struct {
	mu      sync.Mutex // guards kq against Wake racing Close
	kq      int
	tbl     *table
	events  [maxEvents]unix.Kevent_t
	changes []unix.Kevent_t
	batch   []api.Readiness
}

// New creates a new kqueue-backed reactor.
func New() (api.Reactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, api.TransportFault("kqueue create", err)
	}
	unix.CloseOnExec(kq)

	var user unix.Kevent_t
	unix.SetKevent(&user, wakeIdent, unix.EVFILT_USER, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(kq, []unix.Kevent_t{user}, nil, nil); err != nil {
		unix.Close(kq)
		return nil, api.TransportFault("kevent user", err)
	}
	return &kqueueReactor{
		kq:    kq,
		tbl:   newTable(),
		batch: make([]api.Readiness, 0, maxEvents*2),
	}, nil
}

func (r *kqueueReactor) Register(fd int, in api.Interest) error { return r.tbl.register(fd, in) }
func (r *kqueueReactor) Pause(fd int, in api.Interest) error    { return r.tbl.pause(fd, in) }
func (r *kqueueReactor) Resume(fd int, in api.Interest) error   { return r.tbl.resume(fd, in) }

// wakeIdent names the EVFILT_USER event triggered by Wake.
const wakeIdent = 0

// Wake triggers the user event; kevent may be called concurrently.
func (r *kqueueReactor) Wake() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kq < 0 {
		return api.ErrTransportClosed
	}
	var ev unix.Kevent_t
	unix.SetKevent(&ev, wakeIdent, unix.EVFILT_USER, 0)
	ev.Fflags = unix.NOTE_TRIGGER
	if _, err := unix.Kevent(r.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		return api.TransportFault("kevent trigger", err)
	}
	return nil
}

var filters = [...]struct {
	in     api.Interest
	filter int
}{
	{api.InterestRead, unix.EVFILT_READ},
	{api.InterestWrite, unix.EVFILT_WRITE},
}

// Unregister deletes every installed filter for fd right away.
func (r *kqueueReactor) Unregister(fd int) error {
	st, ok := r.tbl.unregister(fd)
	if !ok {
		return nil
	}
	r.changes = r.changes[:0]
	for _, f := range filters {
		if st.kernel&f.in != 0 {
			var ev unix.Kevent_t
			unix.SetKevent(&ev, fd, f.filter, unix.EV_DELETE)
			r.changes = append(r.changes, ev)
		}
	}
	if len(r.changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(r.kq, r.changes, nil, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return api.TransportFault("kevent delete", err)
	}
	return nil
}

func (r *kqueueReactor) apply(fd int, st *fdState) error {
	r.changes = r.changes[:0]
	installed := st.kernel
	for _, f := range filters {
		var ev unix.Kevent_t
		switch {
		case st.registered&f.in != 0:
			flags := unix.EV_ADD | unix.EV_ENABLE
			if st.paused&f.in != 0 {
				flags = unix.EV_ADD | unix.EV_DISABLE
			}
			unix.SetKevent(&ev, fd, f.filter, flags)
			installed |= f.in
		case st.kernel&f.in != 0:
			unix.SetKevent(&ev, fd, f.filter, unix.EV_DELETE)
			installed &^= f.in
		default:
			continue
		}
		r.changes = append(r.changes, ev)
	}
	if len(r.changes) == 0 {
		return nil
	}
	if _, err := unix.Kevent(r.kq, r.changes, nil, nil); err != nil {
		return err
	}
	st.added = true
	st.kernel = installed
	return nil
}

// Poll applies the change list, then blocks in kevent.
func (r *kqueueReactor) Poll(cb func(api.Readiness) error) error {
	r.tbl.flush(r.apply)
	batch := r.tbl.beginBatch(r.batch[:0])

	var timeout *unix.Timespec
	if len(batch) > 0 {
		timeout = &unix.Timespec{}
	}
	n, err := unix.Kevent(r.kq, nil, r.events[:], timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			n = 0
		} else {
			return api.TransportFault("kevent wait", err)
		}
	}

	for i := 0; i < n; i++ {
		ev := r.events[i]
		if int(ev.Filter) == unix.EVFILT_USER {
			continue
		}
		fd := int(ev.Ident)
		eof := ev.Flags&unix.EV_EOF != 0
		if ev.Flags&unix.EV_ERROR != 0 {
			batch = append(batch, api.Readiness{Kind: api.EventError, Fd: fd})
			continue
		}
		switch int(ev.Filter) {
		case unix.EVFILT_READ:
			// Data still buffered behind an EOF is delivered before the hang-up.
			if ev.Data > 0 {
				batch = append(batch, api.Readiness{Kind: api.EventRead, Fd: fd, Hint: int(ev.Data)})
			}
		case unix.EVFILT_WRITE:
			if !eof {
				batch = append(batch, api.Readiness{Kind: api.EventWrite, Fd: fd, Hint: int(ev.Data)})
			}
		}
		if eof {
			batch = append(batch, api.Readiness{Kind: api.EventError, Fd: fd})
		}
	}
	r.batch = batch
	return r.tbl.deliver(batch, cb)
}

// Close releases the kqueue descriptor.
func (r *kqueueReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := unix.Close(r.kq)
	r.kq = -1
	return err
}
