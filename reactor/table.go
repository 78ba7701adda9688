// File: reactor/table.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral interest bookkeeping shared by the epoll and kqueue backends.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-rtm/api"
)

// maxEvents bounds the number of events fetched per Poll.
const maxEvents = 128

type fdState struct {
	registered api.Interest
	paused     api.Interest
	kernel     api.Interest // what the backend currently has installed
	added      bool
	dirty      bool
}

// effective is the interest set that may produce events.
func (s *fdState) effective() api.Interest {
	return s.registered &^ s.paused
}

// table tracks registrations and the pending change list.
type table struct {
	fds     map[int]*fdState
	pending []int
	retired map[int]struct{} // unregistered during the current batch
	failed  []int            // descriptors whose change could not be applied
	orphans map[int]struct{} // failed descriptors reported in the current batch
}

func newTable() *table {
	return &table{
		fds:     make(map[int]*fdState),
		retired: make(map[int]struct{}),
		orphans: make(map[int]struct{}),
	}
}

func (t *table) mark(fd int, st *fdState) {
	if !st.dirty {
		st.dirty = true
		t.pending = append(t.pending, fd)
	}
}

func (t *table) register(fd int, in api.Interest) error {
	if fd < 0 || in == 0 {
		return fmt.Errorf("reactor: register fd %d: invalid argument", fd)
	}
	st := t.fds[fd]
	if st == nil {
		st = &fdState{}
		t.fds[fd] = st
	}
	st.registered |= in
	st.paused &^= in
	t.mark(fd, st)
	return nil
}

func (t *table) pause(fd int, in api.Interest) error {
	st := t.fds[fd]
	if st == nil {
		return fmt.Errorf("reactor: pause fd %d: %w", fd, api.ErrNotFound)
	}
	st.paused |= in & st.registered
	t.mark(fd, st)
	return nil
}

func (t *table) resume(fd int, in api.Interest) error {
	st := t.fds[fd]
	if st == nil {
		return fmt.Errorf("reactor: resume fd %d: %w", fd, api.ErrNotFound)
	}
	st.paused &^= in
	t.mark(fd, st)
	return nil
}

// unregister forgets fd and returns its state so the backend can remove
// whatever it installed.
func (t *table) unregister(fd int) (*fdState, bool) {
	st, ok := t.fds[fd]
	if !ok {
		return nil, false
	}
	delete(t.fds, fd)
	t.retired[fd] = struct{}{}
	return st, true
}

// flush applies every pending change through apply. A failing descriptor is
// dropped from the table and reported as an error event on the next delivery.
func (t *table) flush(apply func(fd int, st *fdState) error) {
	for _, fd := range t.pending {
		st := t.fds[fd]
		if st == nil {
			continue
		}
		st.dirty = false
		if err := apply(fd, st); err != nil {
			delete(t.fds, fd)
			t.failed = append(t.failed, fd)
		}
	}
	t.pending = t.pending[:0]
}

// beginBatch resets per-batch state and returns error events for descriptors
// that failed to apply.
func (t *table) beginBatch(out []api.Readiness) []api.Readiness {
	clear(t.retired)
	clear(t.orphans)
	for _, fd := range t.failed {
		t.orphans[fd] = struct{}{}
		out = append(out, api.Readiness{Kind: api.EventError, Fd: fd})
	}
	t.failed = t.failed[:0]
	return out
}

// deliverable reports whether ev may still reach the caller.
func (t *table) deliverable(ev api.Readiness) bool {
	if _, gone := t.retired[ev.Fd]; gone {
		return false
	}
	st := t.fds[ev.Fd]
	switch ev.Kind {
	case api.EventRead:
		return st != nil && st.effective()&api.InterestRead != 0
	case api.EventWrite:
		return st != nil && st.effective()&api.InterestWrite != 0
	default:
		// A descriptor dropped by a failed change has no state left
		// but still gets its error event.
		_, orphan := t.orphans[ev.Fd]
		return st != nil || orphan
	}
}

// deliver hands the batch to cb, re-checking each event against the table
// since cb may unregister or pause descriptors mid-batch.
func (t *table) deliver(batch []api.Readiness, cb func(api.Readiness) error) error {
	for _, ev := range batch {
		if !t.deliverable(ev) {
			continue
		}
		if err := cb(ev); err != nil {
			return err
		}
	}
	return nil
}
