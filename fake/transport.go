// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake secure transport with scripted inbound chunks and recorded writes.

package fake

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/momentics/hioload-rtm/api"
)

// Transport is a fake implementation of api.SecureTransport for testing.
// Each Read returns at most one queued chunk; when nothing is queued it
// returns the configured receive error, or io.EOF.
type Transport struct {
	mu         sync.Mutex
	sendBuffer [][]byte
	recvBuffer [][]byte
	closed     bool
	sendError  error
	recvError  error
	closeError error
}

// NewTransport creates a new fake transport with default settings.
func NewTransport() *Transport {
	return &Transport{
		sendBuffer: make([][]byte, 0),
		recvBuffer: make([][]byte, 0),
	}
}

// Write implements api.SecureTransport.Write.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, api.ErrTransportClosed
	}
	if t.sendError != nil {
		return 0, t.sendError
	}
	bufCopy := make([]byte, len(p))
	copy(bufCopy, p)
	t.sendBuffer = append(t.sendBuffer, bufCopy)
	return len(p), nil
}

// Read implements api.SecureTransport.Read.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, api.ErrTransportClosed
	}
	if len(t.recvBuffer) == 0 {
		if t.recvError != nil {
			return 0, t.recvError
		}
		return 0, io.EOF
	}
	head := t.recvBuffer[0]
	n := copy(p, head)
	if n < len(head) {
		t.recvBuffer[0] = head[n:]
	} else {
		t.recvBuffer = t.recvBuffer[1:]
	}
	return n, nil
}

// Close implements api.SecureTransport.Close.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closeError != nil {
		return t.closeError
	}
	t.closed = true
	return nil
}

// IsClosed reports whether Close succeeded.
func (t *Transport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// SetSendError configures the transport to return an error on Write.
func (t *Transport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendError = err
}

// SetRecvError configures the error returned once queued data runs out.
func (t *Transport) SetRecvError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recvError = err
}

// SetCloseError configures the transport to return an error on Close.
func (t *Transport) SetCloseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeError = err
}

// AddRecvData queues one chunk for a later Read.
func (t *Transport) AddRecvData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	t.recvBuffer = append(t.recvBuffer, dataCopy)
}

// GetSentData returns every Write payload in order.
func (t *Transport) GetSentData() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent := make([][]byte, len(t.sendBuffer))
	copy(sent, t.sendBuffer)
	return sent
}

// ClearSentData clears the internal send buffer.
func (t *Transport) ClearSentData() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendBuffer = t.sendBuffer[:0]
}

// Dialer hands out the given transports in order, one per dial, and
// records every address dialed.
type Dialer struct {
	mu    sync.Mutex
	next  []*Transport
	addrs []string
}

// NewDialer returns a dialer over ts.
func NewDialer(ts ...*Transport) *Dialer {
	return &Dialer{next: ts}
}

// Dial implements api.Dialer.
func (d *Dialer) Dial(ctx context.Context, host string, port int) (api.SecureTransport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.addrs = append(d.addrs, fmt.Sprintf("%s:%d", host, port))
	if len(d.next) == 0 {
		return nil, fmt.Errorf("fake dialer: no transport left for %s:%d", host, port)
	}
	t := d.next[0]
	d.next = d.next[1:]
	return t, nil
}

// Dialed returns the addresses dialed so far.
func (d *Dialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}
