// Author: momentics <momentics@gmail.com>

package fake

import (
	"errors"
	"sync"

	"github.com/momentics/hioload-rtm/api"
)

// ErrDrained is returned by Reactor.Poll once every scripted batch has been
// delivered and no wake-up is pending.
var ErrDrained = errors.New("fake reactor: script drained")

// Reactor is a scripted api.Reactor. Each Poll delivers the next pushed
// batch, filtered the way a real backend filters: paused or unregistered
// interests deliver nothing.
type Reactor struct {
	mu         sync.Mutex
	steps      []step
	registered map[int]api.Interest
	paused     map[int]api.Interest
	woken      bool
	closed     bool
	polls      int
}

type step struct {
	events []api.Readiness
	fn     func()
}

// NewReactor returns an empty scripted reactor.
func NewReactor() *Reactor {
	return &Reactor{
		registered: make(map[int]api.Interest),
		paused:     make(map[int]api.Interest),
	}
}

// Push appends one batch to the script.
func (r *Reactor) Push(batch ...api.Readiness) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step{events: batch})
}

// Do appends a step that runs fn inside Poll instead of delivering events,
// letting tests inspect state between batches.
func (r *Reactor) Do(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step{fn: fn})
}

func (r *Reactor) Register(fd int, in api.Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[fd] |= in
	r.paused[fd] &^= in
	return nil
}

func (r *Reactor) Unregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registered, fd)
	delete(r.paused, fd)
	return nil
}

func (r *Reactor) Pause(fd int, in api.Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[fd]; !ok {
		return api.ErrNotFound
	}
	r.paused[fd] |= in
	return nil
}

func (r *Reactor) Resume(fd int, in api.Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[fd]; !ok {
		return api.ErrNotFound
	}
	r.paused[fd] &^= in
	return nil
}

// Poll delivers the next scripted batch.
func (r *Reactor) Poll(cb func(api.Readiness) error) error {
	r.mu.Lock()
	r.polls++
	if len(r.steps) == 0 {
		woken := r.woken
		r.woken = false
		r.mu.Unlock()
		if woken {
			return nil
		}
		return ErrDrained
	}
	st := r.steps[0]
	r.steps = r.steps[1:]
	r.mu.Unlock()

	if st.fn != nil {
		st.fn()
		return nil
	}
	for _, ev := range st.events {
		if !r.deliverable(ev) {
			continue
		}
		if err := cb(ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reactor) deliverable(ev api.Readiness) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registered[ev.Fd]
	if !ok {
		return false
	}
	eff := reg &^ r.paused[ev.Fd]
	switch ev.Kind {
	case api.EventRead:
		return eff&api.InterestRead != 0
	case api.EventWrite:
		return eff&api.InterestWrite != 0
	default:
		return true
	}
}

// Wake makes the next Poll on an empty script return nil instead of ErrDrained.
func (r *Reactor) Wake() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.woken = true
	return nil
}

func (r *Reactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Effective returns the unpaused interest set of fd.
func (r *Reactor) Effective(fd int) api.Interest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered[fd] &^ r.paused[fd]
}

// Registered reports whether fd is known to the reactor.
func (r *Reactor) Registered(fd int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.registered[fd]
	return ok
}

// Closed reports whether Close was called.
func (r *Reactor) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Polls returns how many times Poll ran.
func (r *Reactor) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}
