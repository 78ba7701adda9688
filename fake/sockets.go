// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-rtm/api"
)

// ListenFd is the descriptor handed out by Sockets.Listen.
const ListenFd = 3

type accepted struct {
	fd   int
	peer string
}

// Sockets is a scripted api.SocketOps. Reads are served from per-descriptor
// queues, writes are recorded and can be throttled to force backlogs.
type Sockets struct {
	mu         sync.Mutex
	listenErr  error
	accepts    []accepted
	reads      map[int][][]byte
	readErr    map[int]error
	writeLimit map[int]int
	writeErr   map[int]error
	written    map[int][]byte
	writes     map[int]int
	closed     map[int]bool
}

// NewSockets returns an empty script.
func NewSockets() *Sockets {
	return &Sockets{
		reads:      make(map[int][][]byte),
		readErr:    make(map[int]error),
		writeLimit: make(map[int]int),
		writeErr:   make(map[int]error),
		written:    make(map[int][]byte),
		writes:     make(map[int]int),
		closed:     make(map[int]bool),
	}
}

// SetListenError makes Listen fail.
func (s *Sockets) SetListenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenErr = err
}

// QueueAccept makes the next Accept return fd.
func (s *Sockets) QueueAccept(fd int, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepts = append(s.accepts, accepted{fd, peer})
}

// QueueRead appends data to what fd will read.
func (s *Sockets) QueueRead(fd int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[fd] = append(s.reads[fd], append([]byte(nil), data...))
}

// QueueEOF makes a later read on fd return 0 bytes.
func (s *Sockets) QueueEOF(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[fd] = append(s.reads[fd], nil)
}

// SetReadError makes every read on fd fail.
func (s *Sockets) SetReadError(fd int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr[fd] = err
}

// SetWriteLimit caps every write on fd to n bytes; 0 blocks, negative
// removes the cap.
func (s *Sockets) SetWriteLimit(fd, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		delete(s.writeLimit, fd)
		return
	}
	s.writeLimit[fd] = n
}

// SetWriteError makes every write on fd fail.
func (s *Sockets) SetWriteError(fd int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr[fd] = err
}

// Written returns everything written to fd so far.
func (s *Sockets) Written(fd int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written[fd]...)
}

// Writes returns how many successful write calls fd received.
func (s *Sockets) Writes(fd int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[fd]
}

// Closed reports whether fd was closed.
func (s *Sockets) Closed(fd int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[fd]
}

func (s *Sockets) Listen(host string, port int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenErr != nil {
		return -1, 0, s.listenErr
	}
	if port == 0 {
		port = 40000
	}
	return ListenFd, port, nil
}

func (s *Sockets) Accept(listener int) (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.accepts) == 0 {
		return -1, "", api.ErrWouldBlock
	}
	a := s.accepts[0]
	s.accepts = s.accepts[1:]
	return a.fd, a.peer, nil
}

func (s *Sockets) Read(fd int, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr[fd]; err != nil {
		return 0, err
	}
	q := s.reads[fd]
	if len(q) == 0 {
		return 0, api.ErrWouldBlock
	}
	head := q[0]
	if head == nil {
		s.reads[fd] = q[1:]
		return 0, nil
	}
	n := copy(p, head)
	if n < len(head) {
		q[0] = head[n:]
	} else {
		s.reads[fd] = q[1:]
	}
	return n, nil
}

func (s *Sockets) Write(fd int, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr[fd]; err != nil {
		return 0, err
	}
	n := len(p)
	if limit, ok := s.writeLimit[fd]; ok && limit < n {
		n = limit
	}
	if n == 0 && len(p) > 0 {
		return 0, api.ErrWouldBlock
	}
	s.written[fd] = append(s.written[fd], p[:n]...)
	s.writes[fd]++
	return n, nil
}

func (s *Sockets) Close(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[fd] = true
	return nil
}
