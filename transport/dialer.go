// Package transport provides the outbound byte-stream dialers behind
// api.Dialer: TLS for the realtime endpoint and plain TCP for tests and
// local peers. IPv4 only.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/momentics/hioload-rtm/api"
)

// DefaultDialTimeout bounds the TCP connect when the context has no deadline.
const DefaultDialTimeout = 15 * time.Second

func dialTCP(ctx context.Context, host string, port int) (net.Conn, error) {
	d := net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := d.DialContext(ctx, "tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, api.TransportFault("connect", err)
	}
	return conn, nil
}

// TCPDialer returns a dialer producing unencrypted connections.
func TCPDialer() api.Dialer {
	return func(ctx context.Context, host string, port int) (api.SecureTransport, error) {
		conn, err := dialTCP(ctx, host, port)
		if err != nil {
			return nil, err
		}
		return NewNetConn(conn), nil
	}
}

// TLSDialer returns a dialer completing a TLS handshake before handing the
// stream over. cfg may be nil; ServerName defaults to the dialed host.
func TLSDialer(cfg *tls.Config) api.Dialer {
	return func(ctx context.Context, host string, port int) (api.SecureTransport, error) {
		raw, err := dialTCP(ctx, host, port)
		if err != nil {
			return nil, err
		}
		c := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg != nil {
			c = cfg.Clone()
		}
		if c.ServerName == "" {
			c.ServerName = host
		}
		conn := tls.Client(raw, c)
		if err := conn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, api.TransportFault("tls handshake", err)
		}
		return NewNetConn(conn), nil
	}
}
