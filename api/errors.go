// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and the fault taxonomy shared by the reactor, the HTTP
// connection manager and the realtime session.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrTransportClosed = fmt.Errorf("transport is closed")
	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrWouldBlock      = fmt.Errorf("operation would block")
	ErrNotFound        = fmt.Errorf("resource not found")
)

// HTTP codec faults.
var (
	ErrHeaderTooLarge     = fmt.Errorf("header block exceeds limit")
	ErrBadRequestLine     = fmt.Errorf("malformed request line")
	ErrUnsupportedVersion = fmt.Errorf("unsupported http version")
	ErrBadContentLength   = fmt.Errorf("invalid content-length")
	ErrBodyTooLarge       = fmt.Errorf("declared body exceeds limit")
	ErrBodyOverrun        = fmt.Errorf("peer sent more data than content-length")
)

// WebSocket codec faults.
var (
	ErrUnknownOpcode      = fmt.Errorf("unknown websocket opcode")
	ErrInvalidFrameLength = fmt.Errorf("invalid websocket frame length")
	ErrHandshake          = fmt.Errorf("websocket handshake failed")
	ErrPeerClosed         = fmt.Errorf("peer closed the websocket")
)

// FaultKind classifies where a failure originated.
type FaultKind int

const (
	// FaultTransport covers connect/read/write/close failures.
	FaultTransport FaultKind = iota + 1
	// FaultProtocol covers framing violations by the peer.
	FaultProtocol
	// FaultData covers malformed payload content.
	FaultData
)

func (k FaultKind) String() string {
	switch k {
	case FaultTransport:
		return "transport"
	case FaultProtocol:
		return "protocol"
	case FaultData:
		return "data"
	default:
		return "unknown"
	}
}

// Fault is a classified error with the operation that produced it.
type Fault struct {
	Kind FaultKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s fault: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s fault: %s: %v", f.Kind, f.Op, f.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (f *Fault) Unwrap() error { return f.Err }

// TransportFault wraps err as a transport fault.
func TransportFault(op string, err error) error {
	return &Fault{Kind: FaultTransport, Op: op, Err: err}
}

// ProtocolFault wraps err as a protocol fault.
func ProtocolFault(op string, err error) error {
	return &Fault{Kind: FaultProtocol, Op: op, Err: err}
}

// DataFault wraps err as a data fault.
func DataFault(op string, err error) error {
	return &Fault{Kind: FaultData, Op: op, Err: err}
}

// KindOf reports the fault kind of err, or 0 if err is not a Fault.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
