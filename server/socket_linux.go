//go:build linux

package server

import (
	"golang.org/x/sys/unix"
)

func (sysSockets) Accept(listener int) (int, string, error) {
	fd, sa, err := unix.Accept4(listener, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, "", wrapErrno(err)
	}
	return fd, peerString(sa), nil
}

// Write uses MSG_NOSIGNAL so a vanished peer yields EPIPE, not SIGPIPE.
func (sysSockets) Write(fd int, p []byte) (int, error) {
	n, err := unix.SendmsgN(fd, p, nil, nil, unix.MSG_NOSIGNAL)
	if err != nil {
		return 0, wrapErrno(err)
	}
	return n, nil
}
