// File: http1/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package http1

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/momentics/hioload-rtm/api"
)

// Response is an outbound HTTP response. When Successor is set, it replaces
// the connection's codec once the serialized bytes are fully flushed.
type Response struct {
	Status    int
	Headers   []Pair
	Body      []byte
	Successor api.Processor
}

// NewResponse returns an empty response with the given status code.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// TextResponse returns a plain-text response.
func TextResponse(status int, body string) *Response {
	return &Response{
		Status:  status,
		Headers: []Pair{{Key: "Content-Type", Value: "text/plain; charset=utf-8"}},
		Body:    []byte(body),
	}
}

// HTMLResponse returns an HTML response.
func HTMLResponse(status int, body string) *Response {
	return &Response{
		Status:  status,
		Headers: []Pair{{Key: "Content-Type", Value: "text/html; charset=utf-8"}},
		Body:    []byte(body),
	}
}

// SetHeader appends a header, replacing any with the same name.
func (r *Response) SetHeader(key, value string) *Response {
	for i := range r.Headers {
		if strings.EqualFold(r.Headers[i].Key, key) {
			r.Headers[i].Value = value
			return r
		}
	}
	r.Headers = append(r.Headers, Pair{Key: key, Value: value})
	return r
}

// connection returns a caller-supplied Connection header.
func (r *Response) connection() (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, "connection") {
			return h.Value, true
		}
	}
	return "", false
}

// Persistent reports whether the connection stays open once r is flushed.
// A response with a successor always keeps it; otherwise a caller-supplied
// Connection header decides, then the request's keep-alive rule.
func (r *Response) Persistent(req *Request) bool {
	if r.Successor != nil {
		return true
	}
	if v, ok := r.connection(); ok {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), "close") {
				return false
			}
		}
		return true
	}
	return req != nil && req.KeepAlive()
}

// Encode serializes the response for the given request. The status line
// echoes the request's version. Content-Length is always computed here; a
// caller-supplied Connection header is kept, otherwise one is derived from
// the request unless a successor takes over the connection.
func (r *Response) Encode(req *Request) []byte {
	var b bytes.Buffer
	version := HTTP11
	keepAlive := false
	if req != nil {
		version = req.Version
		keepAlive = req.KeepAlive()
	}
	_, ownConnection := r.connection()

	b.WriteString(version.String())
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	reason := http.StatusText(r.Status)
	if reason == "" {
		reason = "Unknown"
	}
	b.WriteString(reason)
	b.WriteString("\r\n")

	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, "content-length") {
			continue
		}
		b.WriteString(h.Key)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	switch {
	case ownConnection, r.Successor != nil:
	case keepAlive:
		b.WriteString("Connection: keep-alive\r\n")
	default:
		b.WriteString("Connection: close\r\n")
	}
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString("\r\n\r\n")
	b.Write(r.Body)
	return b.Bytes()
}
