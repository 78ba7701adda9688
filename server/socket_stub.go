//go:build !linux && !darwin && !freebsd

package server

import (
	"github.com/momentics/hioload-rtm/api"
)

type unsupportedSockets struct{}

// NewSocketOps returns socket ops that fail with api.ErrNotSupported.
func NewSocketOps() api.SocketOps {
	return unsupportedSockets{}
}

func (unsupportedSockets) Listen(string, int) (int, int, error) { return -1, 0, api.ErrNotSupported }
func (unsupportedSockets) Accept(int) (int, string, error)      { return -1, "", api.ErrNotSupported }
func (unsupportedSockets) Read(int, []byte) (int, error)        { return 0, api.ErrNotSupported }
func (unsupportedSockets) Write(int, []byte) (int, error)       { return 0, api.ErrNotSupported }
func (unsupportedSockets) Close(int) error                      { return api.ErrNotSupported }
