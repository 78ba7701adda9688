// File: server/server.go
// Package server implements the reactor-driven HTTP/1.x connection manager.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/http1"
	"github.com/momentics/hioload-rtm/reactor"
)

// ErrNoHandler is returned by Serve when called without a handler.
var ErrNoHandler = errors.New("server: nil handler")

// Metric keys published by the server.
const (
	MetricAccepted = "server.accepted"
	MetricActive   = "server.active"
	MetricFaults   = "server.faults"
	MetricBytesIn  = "server.bytes_in"
	MetricBytesOut = "server.bytes_out"
)

// New opens the listener and registers it with the reactor. Serving starts
// with Serve.
func New(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:      cfg,
		listener: -1,
		conns:    make(map[int]*Connection),
	}
	for _, o := range opts {
		o(s)
	}
	if s.cfg.ReadChunk <= 0 {
		s.cfg.ReadChunk = DefaultConfig().ReadChunk
	}
	if s.logger == nil {
		s.logger = log.New(os.Stderr, "server: ", log.LstdFlags)
	}
	if s.sockets == nil {
		s.sockets = NewSocketOps()
	}
	if s.reactor == nil {
		r, err := reactor.New()
		if err != nil {
			return nil, err
		}
		s.reactor = r
	}
	s.rbuf = make([]byte, s.cfg.ReadChunk)

	fd, port, err := s.sockets.Listen(s.cfg.Host, s.cfg.Port)
	if err != nil {
		s.reactor.Close()
		return nil, fmt.Errorf("server: listen %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	if err := s.reactor.Register(fd, api.InterestRead); err != nil {
		s.sockets.Close(fd)
		s.reactor.Close()
		return nil, err
	}
	s.listener = fd
	s.port = port
	return s, nil
}

// Port returns the bound listening port.
func (s *Server) Port() int {
	return s.port
}

// Serve runs the event loop until ctx is cancelled, Stop is called and every
// backlog has drained, or the reactor fails. A server serves once; all
// descriptors are released when Serve returns.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	if h == nil {
		return ErrNoHandler
	}
	s.handler = h
	defer s.Close()
	unwatch := context.AfterFunc(ctx, func() { s.reactor.Wake() })
	defer unwatch()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.stopping.Load() {
			s.closeListener()
			if s.drained() {
				return nil
			}
		}
		if err := s.reactor.Poll(s.dispatch); err != nil {
			return err
		}
	}
}

// Stop asks Serve to stop accepting and return once pending responses are
// flushed. It is safe to call from any goroutine.
func (s *Server) Stop() {
	if s.stopping.CompareAndSwap(false, true) {
		s.reactor.Wake()
	}
}

// Close releases the listener, every connection and the reactor. Serve calls
// it on return; calling it directly is only needed when Serve never ran.
func (s *Server) Close() error {
	var err error
	s.release.Do(func() {
		for _, c := range s.conns {
			s.teardown(c, nil)
		}
		s.closeListener()
		err = s.reactor.Close()
	})
	return err
}

// Finish closes the connection on fd without waiting for its backlog.
func (s *Server) Finish(fd int) {
	if c, ok := s.conns[fd]; ok {
		s.teardown(c, nil)
	}
}

// Write queues data on the connection for fd. done runs after the last byte
// is written; a nil done means Continue.
func (s *Server) Write(fd int, data []byte, done WriteDone) error {
	c, ok := s.conns[fd]
	if !ok {
		return fmt.Errorf("server: write fd %d: %w", fd, api.ErrNotFound)
	}
	return s.write(c, data, done)
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	return len(s.conns)
}

func (s *Server) closeListener() {
	if s.listener < 0 {
		return
	}
	s.reactor.Unregister(s.listener)
	s.sockets.Close(s.listener)
	s.listener = -1
}

func (s *Server) drained() bool {
	for _, c := range s.conns {
		if c.backlog.Length() > 0 {
			return false
		}
	}
	return true
}

func (s *Server) dispatch(ev api.Readiness) error {
	if ev.Fd == s.listener {
		switch ev.Kind {
		case api.EventRead:
			s.acceptAll()
		case api.EventError:
			return api.TransportFault("listener", api.ErrTransportClosed)
		}
		return nil
	}

	c, ok := s.conns[ev.Fd]
	if !ok {
		return nil
	}
	switch ev.Kind {
	case api.EventRead:
		s.readFrom(c, ev.Hint)
	case api.EventWrite:
		s.drain(c)
	case api.EventError:
		s.drainReads(c)
		if !c.closed {
			s.teardown(c, nil)
		}
	}
	return nil
}

func (s *Server) acceptAll() {
	for {
		fd, peer, err := s.sockets.Accept(s.listener)
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		if err != nil {
			s.logger.Printf("accept: %v", err)
			return
		}
		if err := s.reactor.Register(fd, api.InterestRead|api.InterestWrite); err != nil {
			s.logger.Printf("register fd %d: %v", fd, err)
			s.sockets.Close(fd)
			continue
		}
		s.reactor.Pause(fd, api.InterestWrite)

		c := newConnection(fd, peer)
		c.codec = http1.NewCodec(s.requestHandler(c),
			http1.WithMaxHeaderBytes(s.cfg.MaxHeaderBytes),
			http1.WithMaxBodyBytes(s.cfg.MaxBodyBytes))
		s.conns[fd] = c
		s.metrics.Add(MetricAccepted, 1)
		s.metrics.Set(MetricActive, len(s.conns))
	}
}

func (s *Server) readFrom(c *Connection, hint int) {
	n := len(s.rbuf)
	if hint > 0 && hint < n {
		n = hint
	}
	s.readOnce(c, n)
}

// drainReads consumes whatever the peer sent before hanging up. epoll
// reports no byte count, so one read per event could lose the tail.
func (s *Server) drainReads(c *Connection) {
	for s.readOnce(c, len(s.rbuf)) {
	}
}

// readOnce reads up to n bytes into the codec. It reports whether data was
// consumed and the connection is still open.
func (s *Server) readOnce(c *Connection, n int) bool {
	m, err := s.sockets.Read(c.fd, s.rbuf[:n])
	if errors.Is(err, api.ErrWouldBlock) {
		return false
	}
	if err != nil {
		s.teardown(c, api.TransportFault("read", err))
		return false
	}
	if m == 0 {
		s.teardown(c, nil)
		return false
	}
	s.metrics.Add(MetricBytesIn, int64(m))
	if err := c.codec.Process(s.rbuf[:m]); err != nil && !c.closed {
		s.teardown(c, err)
		return false
	}
	return !c.closed
}

// requestHandler binds a parsed request to the connection it arrived on.
func (s *Server) requestHandler(c *Connection) func(*http1.Request) error {
	return func(req *http1.Request) error {
		if c.closed {
			return nil
		}
		responded := false
		s.handler(req, func(resp *http1.Response) {
			if responded {
				s.logger.Printf("fd %d: responder called more than once for %s %s", c.fd, req.Method, req.Path)
				return
			}
			responded = true
			s.respond(c, req, resp)
		})
		if !responded {
			s.logger.Printf("fd %d: handler returned without responding to %s %s", c.fd, req.Method, req.Path)
			responded = true
			s.respond(c, req, http1.TextResponse(500, "no response"))
		}
		return nil
	}
}

func (s *Server) respond(c *Connection, req *http1.Request, resp *http1.Response) {
	if resp == nil {
		resp = http1.NewResponse(500)
	}
	keep := resp.Persistent(req)
	successor := resp.Successor
	s.write(c, resp.Encode(req), func() WriteAction {
		if successor != nil {
			c.codec = successor
		}
		if keep {
			return Continue
		}
		return Terminate
	})
}

func (s *Server) write(c *Connection, data []byte, done WriteDone) error {
	if c.closed {
		return api.ErrTransportClosed
	}
	// Never jump the queue.
	if c.backlog.Length() > 0 {
		c.backlog.Add(&pending{data: data, done: done})
		return nil
	}
	n, err := s.sockets.Write(c.fd, data)
	if err != nil && !errors.Is(err, api.ErrWouldBlock) {
		err = api.TransportFault("write", err)
		s.teardown(c, err)
		return err
	}
	if n < 0 {
		n = 0
	}
	s.metrics.Add(MetricBytesOut, int64(n))
	if n == len(data) {
		s.complete(c, done)
		return nil
	}
	c.backlog.Add(&pending{data: data[n:], done: done})
	s.reactor.Resume(c.fd, api.InterestWrite)
	return nil
}

func (s *Server) drain(c *Connection) {
	for c.backlog.Length() > 0 {
		p := c.backlog.Peek().(*pending)
		n, err := s.sockets.Write(c.fd, p.data)
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		if err != nil {
			s.teardown(c, api.TransportFault("write", err))
			return
		}
		s.metrics.Add(MetricBytesOut, int64(n))
		if n < len(p.data) {
			p.data = p.data[n:]
			return
		}
		c.backlog.Remove()
		s.complete(c, p.done)
		if c.closed {
			return
		}
	}
	s.reactor.Pause(c.fd, api.InterestWrite)
}

func (s *Server) complete(c *Connection, done WriteDone) {
	if done == nil {
		return
	}
	if done() == Terminate {
		s.teardown(c, nil)
	}
}

// teardown unregisters, closes and forgets c. A non-nil err is reported once.
func (s *Server) teardown(c *Connection, err error) {
	if c.closed {
		return
	}
	c.closed = true
	s.reactor.Unregister(c.fd)
	s.sockets.Close(c.fd)
	delete(s.conns, c.fd)
	s.metrics.Set(MetricActive, len(s.conns))
	if err == nil {
		return
	}
	s.metrics.Add(MetricFaults, 1)
	s.logger.Printf("fd %d (%s): %v", c.fd, c.peer, err)
	if s.onFault != nil {
		s.onFault(c.fd, err)
	}
}
