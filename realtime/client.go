// File: realtime/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client owns the realtime session: it resolves the socket URL, dials,
// translates inbound frames into events and reconnects after faults.

package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/control"
	"github.com/momentics/hioload-rtm/protocol"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/time/rate"
)

const (
	MetricFramesIn   = "realtime.frames_in"
	MetricFramesOut  = "realtime.frames_out"
	MetricEvents     = "realtime.events"
	MetricDataFaults = "realtime.data_faults"
	MetricReconnects = "realtime.reconnects"
)

// DefaultEventBuffer is the capacity of the Events channel.
const DefaultEventBuffer = 64

// URLResolver returns a fresh socket URL for each connection attempt.
type URLResolver func(ctx context.Context) (string, error)

// RetryPolicy paces reconnects. BackOff returning backoff.Stop ends Run.
type RetryPolicy struct {
	BackOff backoff.BackOff
	Sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy returns an exponential policy between initial and max
// that never gives up. A zero max reconnects immediately.
func NewRetryPolicy(initial, max time.Duration) RetryPolicy {
	if max <= 0 {
		return RetryPolicy{BackOff: &backoff.ZeroBackOff{}}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()
	return RetryPolicy{BackOff: b}
}

// Options configures a Client. The zero value is usable.
type Options struct {
	Handshake   protocol.Options
	Retry       RetryPolicy
	SendRate    rate.Limit // outbound messages per second; 0 is unlimited
	SendBurst   int
	EventBuffer int
	Logger      *log.Logger
	Metrics     *control.MetricsRegistry
}

// Client is a reconnecting realtime session. Run drives it; Send may be
// called from any goroutine while Run is active.
type Client struct {
	resolve URLResolver
	dial    api.Dialer
	opts    Options
	events  chan Event
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *control.MetricsRegistry

	mu      sync.Mutex
	session *protocol.Session
}

// NewClient builds a client. resolve is consulted before every dial.
func NewClient(resolve URLResolver, dial api.Dialer, opts *Options) *Client {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.Retry.BackOff == nil {
		o.Retry.BackOff = &backoff.ZeroBackOff{}
	}
	if o.Retry.Sleep == nil {
		o.Retry.Sleep = sleepContext
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "realtime: ", log.LstdFlags)
	}
	limit, burst := o.SendRate, o.SendBurst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		resolve: resolve,
		dial:    dial,
		opts:    o,
		events:  make(chan Event, o.EventBuffer),
		limiter: rate.NewLimiter(limit, burst),
		logger:  o.Logger,
		metrics: o.Metrics,
	}
}

// Events delivers translated events in arrival order. The channel is
// closed when Run returns.
func (c *Client) Events() <-chan Event { return c.events }

// Run connects and reads until ctx is cancelled or the retry policy gives
// up. Every session fault is delivered as a Diagnostic before the next
// attempt.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	bo := c.opts.Retry.BackOff
	bo.Reset()
	for {
		err := c.runSession(ctx, bo)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("session ended: %v", err)
		if c.emit(ctx, Diagnostic{Err: err}) != nil {
			return ctx.Err()
		}
		d := bo.NextBackOff()
		if d == backoff.Stop {
			return fmt.Errorf("realtime: giving up: %w", err)
		}
		c.metrics.Add(MetricReconnects, 1)
		if err := c.opts.Retry.Sleep(ctx, d); err != nil {
			return ctx.Err()
		}
	}
}

func (c *Client) runSession(ctx context.Context, bo backoff.BackOff) error {
	url, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	s, err := protocol.Dial(ctx, c.dial, url, &c.opts.Handshake)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	c.logger.Printf("session %s connected", id)
	bo.Reset()

	c.setSession(s)
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer func() {
		stop()
		c.setSession(nil)
		s.Close()
	}()

	var partial []byte
	for {
		f, err := s.NextFrame()
		if err != nil {
			return err
		}
		c.metrics.Add(MetricFramesIn, 1)
		switch f.Opcode {
		case protocol.OpcodeText:
			if !f.Fin {
				partial = append(partial[:0], f.Payload...)
				continue
			}
			partial = partial[:0]
			if err := c.deliver(ctx, id, f.Payload); err != nil {
				return err
			}
		case protocol.OpcodeContinuation:
			partial = append(partial, f.Payload...)
			if !f.Fin {
				continue
			}
			payload := partial
			partial = nil
			if err := c.deliver(ctx, id, payload); err != nil {
				return err
			}
		case protocol.OpcodeClose:
			return api.TransportFault("read", api.ErrPeerClosed)
		}
	}
}

// deliver translates one complete text payload. Data faults are logged and
// dropped; only a cancelled ctx is returned.
func (c *Client) deliver(ctx context.Context, session string, payload []byte) error {
	doc, err := ParseDocument(payload)
	if err != nil {
		c.metrics.Add(MetricDataFaults, 1)
		c.logger.Printf("session %s: dropping payload: %v", session, err)
		return nil
	}
	ev, ok := Translate(doc)
	if !ok {
		return nil
	}
	return c.emit(ctx, ev)
}

func (c *Client) emit(ctx context.Context, ev Event) error {
	select {
	case c.events <- ev:
		c.metrics.Add(MetricEvents, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) setSession(s *protocol.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) current() *protocol.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

type outbound struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Send posts text to channel on the live session. The matching Reply event
// carries id.
func (c *Client) Send(ctx context.Context, channel, text string, id int64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	s := c.current()
	if s == nil {
		return api.TransportFault("send", api.ErrTransportClosed)
	}
	payload, err := sonnet.Marshal(outbound{ID: id, Type: "message", Channel: channel, Text: text})
	if err != nil {
		return api.DataFault("encode message", err)
	}
	if err := s.WriteText(payload); err != nil {
		return err
	}
	c.metrics.Add(MetricFramesOut, 1)
	return nil
}

// ReplyCounter hands out message ids, starting at 1.
type ReplyCounter struct {
	n atomic.Int64
}

// Next returns the next id.
func (r *ReplyCounter) Next() int64 { return r.n.Add(1) }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPeerClose reports whether err ended a session with a close frame.
func IsPeerClose(err error) bool { return errors.Is(err, api.ErrPeerClosed) }
