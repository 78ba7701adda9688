package server

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/control"
	"github.com/momentics/hioload-rtm/http1"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Host           string // IPv4 bind address, empty for all interfaces
	Port           int    // 0 picks a free port
	MaxHeaderBytes int    // header block cap per request
	MaxBodyBytes   int    // declared body cap, 0 = unlimited
	ReadChunk      int    // largest single read
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           7777,
		MaxHeaderBytes: http1.DefaultMaxHeaderBytes,
		MaxBodyBytes:   1 << 20,
		ReadChunk:      16 * 1024,
	}
}

// Handler serves one request. It runs on Serve's goroutine and must call
// respond exactly once before returning.
type Handler func(req *http1.Request, respond Responder)

// Responder queues the response for the request it was handed with.
type Responder func(resp *http1.Response)

// WriteAction tells the connection manager what to do once a write is flushed.
type WriteAction int

const (
	Continue WriteAction = iota
	Terminate
)

// WriteDone runs after the last byte of a write reached the socket.
type WriteDone func() WriteAction

// FaultHook observes every connection dropped because of a fault.
type FaultHook func(fd int, err error)

// Server is a single-listener HTTP/1.x connection manager driven by an
// api.Reactor. All connection state is owned by the goroutine running Serve.
type Server struct {
	cfg      *Config
	reactor  api.Reactor
	sockets  api.SocketOps
	logger   *log.Logger
	metrics  *control.MetricsRegistry
	onFault  FaultHook
	listener int
	port     int
	conns    map[int]*Connection
	handler  Handler
	rbuf     []byte
	stopping atomic.Bool
	release  sync.Once
}
