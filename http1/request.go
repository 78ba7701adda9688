// File: http1/request.go
// Package http1 implements an incremental HTTP/1.0 and HTTP/1.1 codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Requests are parsed from arbitrary chunk boundaries; responses are
// serialized with an explicit Content-Length. Chunked transfer-encoding
// is not supported.

package http1

import (
	"strings"
)

// Version is the HTTP protocol version of a request.
type Version int

const (
	HTTP10 Version = iota
	HTTP11
)

func (v Version) String() string {
	if v == HTTP11 {
		return "HTTP/1.1"
	}
	return "HTTP/1.0"
}

// Pair is one ordered key/value entry of a header list or query string.
type Pair struct {
	Key   string
	Value string
}

// Request is a fully received HTTP request. Header names are lower-cased.
type Request struct {
	Version       Version
	Method        string
	Path          string
	Query         []Pair
	Headers       []Pair
	Body          []byte
	ContentLength int
}

// Header returns the first value of the named header.
func (r *Request) Header(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, h := range r.Headers {
		if h.Key == name {
			return h.Value, true
		}
	}
	return "", false
}

// QueryValue returns the first value of the named query parameter.
func (r *Request) QueryValue(key string) (string, bool) {
	for _, q := range r.Query {
		if q.Key == key {
			return q.Value, true
		}
	}
	return "", false
}

// HasToken reports whether the comma-separated header value contains token,
// compared case-insensitively.
func (r *Request) HasToken(header, token string) bool {
	v, ok := r.Header(header)
	if !ok {
		return false
	}
	for _, part := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// KeepAlive reports whether the connection stays open after the response:
// the peer asked for keep-alive or speaks HTTP/1.1, and did not ask to close.
func (r *Request) KeepAlive() bool {
	if r.HasToken("connection", "close") {
		return false
	}
	return r.HasToken("connection", "keep-alive") || r.Version == HTTP11
}
