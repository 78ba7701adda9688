// File: http1/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package http1

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/momentics/hioload-rtm/api"
)

// DefaultMaxHeaderBytes caps the header block buffered before the blank line.
const DefaultMaxHeaderBytes = 4096

const (
	cr = '\r'
	lf = '\n'
)

type state int

const (
	awaitingHeaders state = iota
	awaitingBody
)

// Codec is the per-connection request parser. It is not safe for
// concurrent use; the owning connection feeds it from one goroutine.
type Codec struct {
	state     state
	maxHeader int
	maxBody   int
	buf       []byte
	req       *Request
	onRequest func(*Request) error
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithMaxHeaderBytes overrides DefaultMaxHeaderBytes.
func WithMaxHeaderBytes(n int) CodecOption {
	return func(c *Codec) {
		if n > 0 {
			c.maxHeader = n
		}
	}
}

// WithMaxBodyBytes rejects requests declaring a larger Content-Length.
// Zero means no limit.
func WithMaxBodyBytes(n int) CodecOption {
	return func(c *Codec) { c.maxBody = n }
}

// NewCodec returns a codec that calls onRequest for every completed request.
// An error from onRequest is returned from Process.
func NewCodec(onRequest func(*Request) error, opts ...CodecOption) *Codec {
	c := &Codec{
		maxHeader: DefaultMaxHeaderBytes,
		onRequest: onRequest,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Process feeds one inbound chunk. Any error is a protocol fault and the
// codec must not be used afterwards.
func (c *Codec) Process(chunk []byte) error {
	switch c.state {
	case awaitingHeaders:
		for i, b := range chunk {
			if b != cr {
				c.buf = append(c.buf, b)
			}
			n := len(c.buf)
			if n >= 2 && c.buf[n-1] == lf && c.buf[n-2] == lf {
				req, err := c.parseHead(c.buf[:n-2])
				if err != nil {
					return api.ProtocolFault("http parse", err)
				}
				c.buf = c.buf[:0]
				c.req = req
				c.state = awaitingBody
				return c.Process(chunk[i+1:])
			}
			if n > c.maxHeader {
				return api.ProtocolFault("http parse", fmt.Errorf("%w: %d bytes", api.ErrHeaderTooLarge, n))
			}
		}
		return nil

	case awaitingBody:
		req := c.req
		if len(req.Body)+len(chunk) > req.ContentLength {
			return api.ProtocolFault("http body",
				fmt.Errorf("%w: content-length %d", api.ErrBodyOverrun, req.ContentLength))
		}
		req.Body = append(req.Body, chunk...)
		if len(req.Body) == req.ContentLength {
			c.req = nil
			c.state = awaitingHeaders
			if c.onRequest != nil {
				return c.onRequest(req)
			}
		}
		return nil
	}
	return nil
}

func (c *Codec) parseHead(head []byte) (*Request, error) {
	var lines [][]byte
	for _, l := range bytes.Split(head, []byte{lf}) {
		if len(l) > 0 {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, api.ErrBadRequestLine
	}

	tokens := strings.Fields(string(lines[0]))
	if len(tokens) < 3 {
		return nil, fmt.Errorf("%w: %q", api.ErrBadRequestLine, lines[0])
	}

	req := &Request{Method: tokens[0]}
	switch tokens[2] {
	case "HTTP/1.0":
		req.Version = HTTP10
	case "HTTP/1.1":
		req.Version = HTTP11
	default:
		return nil, fmt.Errorf("%w: %q", api.ErrUnsupportedVersion, tokens[2])
	}

	for _, line := range lines[1:] {
		name, value, ok := bytes.Cut(line, []byte{':'})
		if !ok {
			continue
		}
		req.Headers = append(req.Headers, Pair{
			Key:   strings.ToLower(string(name)),
			Value: strings.TrimSpace(string(value)),
		})
	}

	if v, ok := req.Header("content-length"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", api.ErrBadContentLength, v)
		}
		if c.maxBody > 0 && n > c.maxBody {
			return nil, fmt.Errorf("%w: %d", api.ErrBodyTooLarge, n)
		}
		req.ContentLength = n
	}

	path, rawQuery, hasQuery := strings.Cut(tokens[1], "?")
	req.Path = path
	if hasQuery {
		req.Query = ParseQuery(rawQuery)
	}
	return req, nil
}

// ParseQuery splits a raw query string on '&' and '=' and percent-decodes
// both sides. The key runs to the first '=' and the value starts after the
// last one. Order and duplicates are kept; undecodable pairs are dropped.
func ParseQuery(raw string) []Pair {
	var out []Pair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if found {
			v = part[strings.LastIndexByte(part, '=')+1:]
		}
		key, err := url.PathUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.PathUnescape(v)
		if err != nil {
			continue
		}
		out = append(out, Pair{Key: key, Value: value})
	}
	return out
}
