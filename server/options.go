// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"

	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/control"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithReactor replaces the platform reactor, mainly for tests.
func WithReactor(r api.Reactor) ServerOption {
	return func(s *Server) {
		s.reactor = r
	}
}

// WithSockets replaces the raw socket calls, mainly for tests.
func WithSockets(ops api.SocketOps) ServerOption {
	return func(s *Server) {
		s.sockets = ops
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics feeds connection counters into reg.
func WithMetrics(reg *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		s.metrics = reg
	}
}

// WithOnFault registers a hook called for each faulted connection.
func WithOnFault(h FaultHook) ServerOption {
	return func(s *Server) {
		s.onFault = h
	}
}
