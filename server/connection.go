package server

import (
	"github.com/eapache/queue"
	"github.com/momentics/hioload-rtm/api"
)

// pending is the unwritten remainder of one write and its completion action.
type pending struct {
	data []byte
	done WriteDone
}

// Connection is one accepted peer: its descriptor, the codec currently fed
// with inbound bytes and the FIFO of writes that did not fit the socket.
type Connection struct {
	fd      int
	peer    string
	codec   api.Processor
	backlog *queue.Queue
	closed  bool
}

func newConnection(fd int, peer string) *Connection {
	return &Connection{
		fd:      fd,
		peer:    peer,
		backlog: queue.New(),
	}
}
