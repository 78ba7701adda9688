// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness-driven IO reactors
// used to multiplex sockets across poll-mode backends (epoll, kqueue).

package api

// Interest is a bitmask of readiness kinds a descriptor is watched for.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

// EventKind is the kind of a readiness notification.
type EventKind uint8

const (
	EventRead EventKind = iota + 1
	EventWrite
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Readiness encapsulates one OS-level readiness notification.
// Hint is the byte count reported by the backend, 0 when unknown.
type Readiness struct {
	Kind EventKind
	Fd   int
	Hint int
}

// Reactor multiplexes descriptors and dispatches readiness events
// regardless of the specific polling mechanism used.
//
// Register, Pause and Resume are queued and applied at the start of the next
// Poll. Unregister takes effect immediately, including for events already
// fetched in the batch being delivered.
type Reactor interface {
	// Register adds interest for fd. Calling it again for the same fd
	// widens the interest set.
	Register(fd int, interest Interest) error

	// Unregister drops every interest for fd.
	Unregister(fd int) error

	// Pause disables delivery for the given interest without dropping it.
	Pause(fd int, interest Interest) error

	// Resume re-enables a paused interest.
	Resume(fd int, interest Interest) error

	// Poll blocks until at least one event is ready, or Wake is called, and
	// calls cb for each event of the batch. The first error returned by cb
	// stops the batch and is returned. Backend failures are returned as
	// transport faults.
	Poll(cb func(Readiness) error) error

	// Wake makes a blocked or upcoming Poll return. It is the only method
	// that may be called from another goroutine.
	Wake() error

	// Close releases the poller.
	Close() error
}
