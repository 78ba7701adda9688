//go:build darwin || freebsd

package server

import (
	"golang.org/x/sys/unix"
)

func (sysSockets) Accept(listener int) (int, string, error) {
	fd, sa, err := unix.Accept(listener)
	if err != nil {
		return -1, "", wrapErrno(err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, "", err
	}
	// SIGPIPE is suppressed per socket on BSD.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1); err != nil {
		unix.Close(fd)
		return -1, "", err
	}
	return fd, peerString(sa), nil
}

func (sysSockets) Write(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err != nil {
		return 0, wrapErrno(err)
	}
	return n, nil
}
