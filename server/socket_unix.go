//go:build linux || darwin || freebsd

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-rtm/api"
	"golang.org/x/sys/unix"
)

// sysSockets implements api.SocketOps with raw non-blocking syscalls.
type sysSockets struct{}

// NewSocketOps returns the platform socket implementation.
func NewSocketOps() api.SocketOps {
	return sysSockets{}
}

func (sysSockets) Listen(host string, port int) (int, int, error) {
	var addr [4]byte
	switch host {
	case "", "0.0.0.0":
	case "localhost":
		addr = [4]byte{127, 0, 0, 1}
	default:
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.Is4() {
			return -1, 0, fmt.Errorf("ipv4 address required, got %q: %w", host, api.ErrNotSupported)
		}
		addr = ip.As4()
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, 0, api.TransportFault("socket", err)
	}
	unix.CloseOnExec(fd)
	fail := func(op string, err error) (int, int, error) {
		unix.Close(fd)
		return -1, 0, api.TransportFault(op, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set nonblock", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return fail("listen", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	bound := port
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		bound = in4.Port
	}
	return fd, bound, nil
}

func (sysSockets) Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		return 0, wrapErrno(err)
	}
	return n, nil
}

func (sysSockets) Close(fd int) error {
	return unix.Close(fd)
}

// wrapErrno maps EAGAIN and EINTR to api.ErrWouldBlock; the level-triggered
// reactor reports the descriptor again.
func wrapErrno(err error) error {
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return api.ErrWouldBlock
	}
	return err
}

func peerString(sa unix.Sockaddr) string {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return netip.AddrPortFrom(netip.AddrFrom4(in4.Addr), uint16(in4.Port)).String()
	}
	return "unknown"
}
