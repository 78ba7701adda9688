// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the socket abstractions consumed by the connection manager and the
// realtime session, so both can run against fakes in tests.

package api

import "context"

// SecureTransport is an established, already-encrypted byte stream.
// Write must write all of p or fail.
type SecureTransport interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// Dialer connects a SecureTransport to host:port.
type Dialer func(ctx context.Context, host string, port int) (SecureTransport, error)

// SocketOps are the raw, non-blocking socket calls used by the connection
// manager. Read, Write and Accept return ErrWouldBlock instead of EAGAIN.
type SocketOps interface {
	// Listen opens a non-blocking IPv4 listener and returns its descriptor
	// and the bound port (useful when port is 0).
	Listen(host string, port int) (fd int, boundPort int, err error)

	// Accept returns a non-blocking peer descriptor with SIGPIPE suppressed.
	Accept(listener int) (fd int, peer string, err error)

	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Close(fd int) error
}

// Processor consumes inbound bytes of one connection. A non-nil error is a
// protocol fault that ends the connection.
type Processor interface {
	Process(chunk []byte) error
}
