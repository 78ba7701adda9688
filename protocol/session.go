// File: protocol/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session runs the client side of one WebSocket connection over an
// api.SecureTransport: handshake, then frame reads from a rolling buffer.

package protocol

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-rtm/api"
)

// Options tunes a Session. The zero value is usable.
type Options struct {
	Mode       HandshakeMode
	Query      string // used when the URL has none; defaults to DefaultQuery
	MaxPayload int    // defaults to MaxFramePayload
	ReadChunk  int    // defaults to 4096
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.Query == "" {
		out.Query = DefaultQuery
	}
	if out.MaxPayload <= 0 {
		out.MaxPayload = MaxFramePayload
	}
	if out.ReadChunk <= 0 {
		out.ReadChunk = 4096
	}
	return out
}

// Session is an established client WebSocket. NextFrame must be called
// from a single goroutine; WriteFrame and Close may be called from any.
type Session struct {
	tr         api.SecureTransport
	key        string
	mask       [4]byte
	buf        []byte
	rbuf       []byte
	rerr       error
	maxPayload int

	wmu    sync.Mutex
	wbuf   []byte
	closed atomic.Bool
}

// Endpoint splits a ws:// or wss:// URL into dial host, port, Host header
// and request target.
func Endpoint(rawURL, defaultQuery string) (host string, port int, hostHeader, target string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, "", "", fmt.Errorf("%w: %v", api.ErrHandshake, err)
	}
	switch u.Scheme {
	case "wss", "https":
		port = 443
	case "ws", "http":
		port = 80
	default:
		return "", 0, "", "", fmt.Errorf("%w: unsupported scheme %q", api.ErrHandshake, u.Scheme)
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, "", "", fmt.Errorf("%w: bad port %q", api.ErrHandshake, p)
		}
	}
	host = u.Hostname()
	if host == "" {
		return "", 0, "", "", fmt.Errorf("%w: missing host in %q", api.ErrHandshake, rawURL)
	}
	target = u.EscapedPath()
	if target == "" {
		target = "/"
	}
	query := u.RawQuery
	if query == "" {
		query = defaultQuery
	}
	if query != "" {
		target += "?" + query
	}
	return host, port, u.Host, target, nil
}

// Dial connects to rawURL through dial and performs the handshake.
func Dial(ctx context.Context, dial api.Dialer, rawURL string, opts *Options) (*Session, error) {
	o := opts.withDefaults()
	host, port, hostHeader, target, err := Endpoint(rawURL, o.Query)
	if err != nil {
		return nil, api.ProtocolFault("handshake", err)
	}
	tr, err := dial(ctx, host, port)
	if err != nil {
		if api.KindOf(err) == 0 {
			err = api.TransportFault("connect", err)
		}
		return nil, err
	}
	s, err := Handshake(tr, hostHeader, target, &o)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return s, nil
}

// Handshake sends the upgrade request over tr and consumes the response
// head. Bytes after the head are kept as the start of the first frame.
func Handshake(tr api.SecureTransport, host, target string, opts *Options) (*Session, error) {
	o := opts.withDefaults()
	key, err := NewKey()
	if err != nil {
		return nil, api.TransportFault("handshake key", err)
	}
	mask, err := NewMask()
	if err != nil {
		return nil, api.TransportFault("handshake mask", err)
	}
	s := &Session{
		tr:         tr,
		key:        key,
		mask:       mask,
		rbuf:       make([]byte, o.ReadChunk),
		maxPayload: o.MaxPayload,
	}
	if _, err := tr.Write(BuildUpgradeRequest(host, target, key)); err != nil {
		return nil, api.TransportFault("handshake write", err)
	}

	for {
		if end := headEnd(s.buf); end >= 0 {
			if o.Mode == HandshakeStrict {
				if err := verifyHead(s.buf[:end], key); err != nil {
					return nil, api.ProtocolFault("handshake", err)
				}
			}
			s.buf = append(s.buf[:0], s.buf[end:]...)
			return s, nil
		}
		if len(s.buf) > MaxHandshakeHeadersSize {
			return nil, api.ProtocolFault("handshake",
				fmt.Errorf("%w: response head exceeds %d bytes", api.ErrHandshake, MaxHandshakeHeadersSize))
		}
		if err := s.fill(); err != nil {
			return nil, api.TransportFault("handshake read", err)
		}
	}
}

// fill appends one transport read to the buffer.
func (s *Session) fill() error {
	if s.rerr != nil {
		return s.rerr
	}
	n, err := s.tr.Read(s.rbuf)
	if n > 0 {
		s.buf = append(s.buf, s.rbuf[:n]...)
		// Hand out the data first; the error surfaces on the next fill.
		s.rerr = err
		return nil
	}
	if err == nil {
		return nil
	}
	return err
}

// Key returns the Sec-WebSocket-Key sent in the handshake.
func (s *Session) Key() string { return s.key }

// Buffered returns the number of received bytes not yet decoded.
func (s *Session) Buffered() int { return len(s.buf) }

// NextFrame blocks until a full frame is buffered and returns it. A ping is
// answered with an empty pong before it is returned.
func (s *Session) NextFrame() (*Frame, error) {
	for {
		f, n, err := DecodeFrameLimit(s.buf, s.maxPayload)
		if err != nil {
			return nil, api.ProtocolFault("decode frame", err)
		}
		if f != nil {
			s.buf = append(s.buf[:0], s.buf[n:]...)
			if f.Opcode == OpcodePing {
				if err := s.WriteFrame(OpcodePong, nil); err != nil {
					return nil, err
				}
			}
			return f, nil
		}
		if err := s.fill(); err != nil {
			if s.closed.Load() {
				err = api.ErrTransportClosed
			}
			return nil, api.TransportFault("read", err)
		}
	}
}

// WriteFrame sends one final, masked frame.
func (s *Session) WriteFrame(op Opcode, payload []byte) error {
	if !op.Valid() {
		return api.ProtocolFault("write frame", fmt.Errorf("%w: 0x%x", api.ErrUnknownOpcode, byte(op)))
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return api.TransportFault("write", api.ErrTransportClosed)
	}
	s.wbuf = EncodeFrame(s.wbuf[:0], op, payload, s.mask)
	if _, err := s.tr.Write(s.wbuf); err != nil {
		return api.TransportFault("write", err)
	}
	return nil
}

// WriteText sends a text frame.
func (s *Session) WriteText(payload []byte) error {
	return s.WriteFrame(OpcodeText, payload)
}

// Close sends a close frame, best effort, and closes the transport. It
// unblocks a pending NextFrame on transports that abort reads on close.
func (s *Session) Close() error {
	s.wmu.Lock()
	if s.closed.Swap(true) {
		s.wmu.Unlock()
		return nil
	}
	s.wbuf = EncodeFrame(s.wbuf[:0], OpcodeClose, nil, s.mask)
	s.tr.Write(s.wbuf)
	s.wmu.Unlock()

	if err := s.tr.Close(); err != nil && !errors.Is(err, api.ErrTransportClosed) {
		return api.TransportFault("close", err)
	}
	return nil
}
