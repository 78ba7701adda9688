// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"
	"time"
)

// NetConn adapts a net.Conn, plain or TLS, to api.SecureTransport.
type NetConn struct {
	conn net.Conn
}

// NewNetConn initializes a new NetConn.
func NewNetConn(conn net.Conn) *NetConn {
	return &NetConn{conn: conn}
}

// Read blocks until data arrives.
func (n *NetConn) Read(buf []byte) (int, error) {
	return n.conn.Read(buf)
}

// Write writes all of buf; net.Conn already loops on short writes.
func (n *NetConn) Write(buf []byte) (int, error) {
	return n.conn.Write(buf)
}

// Close the connection.
func (n *NetConn) Close() error {
	return n.conn.Close()
}

// SetReadDeadline bounds the next Read.
func (n *NetConn) SetReadDeadline(t time.Time) error {
	return n.conn.SetReadDeadline(t)
}

// RemoteAddr returns the peer address.
func (n *NetConn) RemoteAddr() net.Addr {
	return n.conn.RemoteAddr()
}
