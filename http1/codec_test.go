package http1_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/http1"
)

type sink struct {
	reqs []*http1.Request
}

func (s *sink) on(r *http1.Request) error {
	s.reqs = append(s.reqs, r)
	return nil
}

func feed(t *testing.T, c *http1.Codec, chunks ...string) error {
	t.Helper()
	for _, ch := range chunks {
		if err := c.Process([]byte(ch)); err != nil {
			return err
		}
	}
	return nil
}

const simpleGet = "GET /cb?code=abc&state=x%20y HTTP/1.1\r\nHost: localhost\r\nUser-Agent: test\r\n\r\n"

func TestCodec_ChunkBoundaryInvariance(t *testing.T) {
	for split := 0; split <= len(simpleGet); split++ {
		s := &sink{}
		c := http1.NewCodec(s.on)
		if err := feed(t, c, simpleGet[:split], simpleGet[split:]); err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		if len(s.reqs) != 1 {
			t.Fatalf("split %d: got %d requests", split, len(s.reqs))
		}
		r := s.reqs[0]
		if r.Method != "GET" || r.Path != "/cb" || r.Version != http1.HTTP11 {
			t.Fatalf("split %d: unexpected request line %+v", split, r)
		}
		if v, _ := r.QueryValue("state"); v != "x y" {
			t.Fatalf("split %d: state=%q", split, v)
		}
	}
}

func TestCodec_ByteAtATime(t *testing.T) {
	s := &sink{}
	c := http1.NewCodec(s.on)
	for i := 0; i < len(simpleGet); i++ {
		if err := c.Process([]byte{simpleGet[i]}); err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
	}
	if len(s.reqs) != 1 {
		t.Fatalf("got %d requests", len(s.reqs))
	}
	if ua, ok := s.reqs[0].Header("User-Agent"); !ok || ua != "test" {
		t.Fatalf("user-agent=%q ok=%v", ua, ok)
	}
}

func TestCodec_HeaderLimit(t *testing.T) {
	s := &sink{}
	c := http1.NewCodec(s.on)
	big := "GET / HTTP/1.1\nX: " + strings.Repeat("a", 4096)
	err := c.Process([]byte(big))
	if !errors.Is(err, api.ErrHeaderTooLarge) {
		t.Fatalf("expected header-too-large, got %v", err)
	}
	if api.KindOf(err) != api.FaultProtocol {
		t.Fatalf("expected protocol fault, got %v", api.KindOf(err))
	}
	if len(s.reqs) != 0 {
		t.Fatal("no request expected")
	}
}

func TestCodec_HeaderLimitExact(t *testing.T) {
	c := http1.NewCodec(nil, http1.WithMaxHeaderBytes(16))
	if err := c.Process(bytes.Repeat([]byte("a"), 16)); err != nil {
		t.Fatalf("16 bytes should fit: %v", err)
	}
	if err := c.Process([]byte("a")); !errors.Is(err, api.ErrHeaderTooLarge) {
		t.Fatalf("17th byte should fault, got %v", err)
	}
}

func TestCodec_CarriageReturnsDoNotCount(t *testing.T) {
	c := http1.NewCodec(nil, http1.WithMaxHeaderBytes(4))
	if err := c.Process([]byte("\r\r\r\r\r\r\r\rabcd")); err != nil {
		t.Fatalf("CR bytes counted toward the limit: %v", err)
	}
}

func TestCodec_BodyAcrossReads(t *testing.T) {
	s := &sink{}
	c := http1.NewCodec(s.on)
	head := "POST /x HTTP/1.1\r\nContent-Length: 5\r\n\r\n"
	if err := feed(t, c, head+"abc"); err != nil {
		t.Fatal(err)
	}
	if len(s.reqs) != 0 {
		t.Fatal("dispatched before body complete")
	}
	if err := feed(t, c, "de"); err != nil {
		t.Fatal(err)
	}
	if len(s.reqs) != 1 || string(s.reqs[0].Body) != "abcde" {
		t.Fatalf("unexpected dispatch: %+v", s.reqs)
	}
	if s.reqs[0].ContentLength != 5 {
		t.Fatalf("content-length=%d", s.reqs[0].ContentLength)
	}

	// Codec is reusable for the next request on a later read.
	if err := feed(t, c, "GET /again HTTP/1.0\r\n\r\n"); err != nil {
		t.Fatal(err)
	}
	if len(s.reqs) != 2 || s.reqs[1].Path != "/again" || s.reqs[1].Version != http1.HTTP10 {
		t.Fatalf("second request not parsed: %+v", s.reqs)
	}
}

func TestCodec_BodyOverrun(t *testing.T) {
	s := &sink{}
	c := http1.NewCodec(s.on)
	err := feed(t, c, "POST /x HTTP/1.1\r\nContent-Length: 5\r\n\r\nabcdef")
	if !errors.Is(err, api.ErrBodyOverrun) {
		t.Fatalf("expected overrun, got %v", err)
	}
	if len(s.reqs) != 0 {
		t.Fatal("overrun request must not be dispatched")
	}
}

func TestCodec_Faults(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"version", "GET / HTTP/2.0\r\n\r\n", api.ErrUnsupportedVersion},
		{"content-length", "POST / HTTP/1.1\r\nContent-Length: five\r\n\r\n", api.ErrBadContentLength},
		{"negative length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", api.ErrBadContentLength},
		{"short line", "GET /\r\n\r\n", api.ErrBadRequestLine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := http1.NewCodec(nil)
			err := c.Process([]byte(tc.in))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCodec_MaxBody(t *testing.T) {
	c := http1.NewCodec(nil, http1.WithMaxBodyBytes(10))
	err := c.Process([]byte("POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\n"))
	if !errors.Is(err, api.ErrBodyTooLarge) {
		t.Fatalf("got %v", err)
	}
}

func TestCodec_HeadersCaseInsensitive(t *testing.T) {
	s := &sink{}
	c := http1.NewCodec(s.on)
	in := "GET / HTTP/1.1\r\nX-Thing:  One \r\nnocolon\r\nx-thing: two\r\n\r\n"
	if err := feed(t, c, in); err != nil {
		t.Fatal(err)
	}
	r := s.reqs[0]
	if len(r.Headers) != 2 {
		t.Fatalf("headers=%+v", r.Headers)
	}
	if v, _ := r.Header("X-THING"); v != "One" {
		t.Fatalf("first value=%q", v)
	}
}

func TestParseQuery(t *testing.T) {
	got := http1.ParseQuery("a=1&b&a=2&&c=%zz&d=%41%42&k=v=w&e=")
	want := []http1.Pair{{"a", "1"}, {"b", ""}, {"a", "2"}, {"d", "AB"}, {"k", "w"}, {"e", ""}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pair %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestRequest_KeepAlive(t *testing.T) {
	cases := []struct {
		v    http1.Version
		conn string
		want bool
	}{
		{http1.HTTP11, "", true},
		{http1.HTTP10, "", false},
		{http1.HTTP10, "Keep-Alive", true},
		{http1.HTTP11, "close", false},
	}
	for _, tc := range cases {
		r := &http1.Request{Version: tc.v}
		if tc.conn != "" {
			r.Headers = []http1.Pair{{Key: "connection", Value: tc.conn}}
		}
		if got := r.KeepAlive(); got != tc.want {
			t.Errorf("%v %q: got %v", tc.v, tc.conn, got)
		}
	}
}

func TestResponse_Encode(t *testing.T) {
	req := &http1.Request{Version: http1.HTTP11}
	got := string(http1.TextResponse(200, "ok").Encode(req))
	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Connection: keep-alive\r\n" +
		"Content-Length: 2\r\n\r\nok"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}

	req10 := &http1.Request{Version: http1.HTTP10}
	got = string(http1.NewResponse(404).Encode(req10))
	if !strings.HasPrefix(got, "HTTP/1.0 404 Not Found\r\n") {
		t.Fatalf("status line: %q", got)
	}
	if !strings.Contains(got, "Connection: close\r\n") || !strings.HasSuffix(got, "Content-Length: 0\r\n\r\n") {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestResponse_CallerConnectionHeader(t *testing.T) {
	req10 := &http1.Request{Version: http1.HTTP10}
	up := http1.NewResponse(101).SetHeader("Upgrade", "custom").SetHeader("Connection", "Upgrade")
	up.Successor = &discard{}
	want := "HTTP/1.0 101 Switching Protocols\r\nUpgrade: custom\r\nConnection: Upgrade\r\nContent-Length: 0\r\n\r\n"
	if got := string(up.Encode(req10)); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	if !up.Persistent(req10) {
		t.Fatal("a response with a successor keeps the connection")
	}

	bare := http1.NewResponse(101)
	bare.Successor = &discard{}
	if got := string(bare.Encode(req10)); strings.Contains(got, "Connection:") {
		t.Fatalf("successor response must not announce close: %q", got)
	}

	req11 := &http1.Request{Version: http1.HTTP11}
	closing := http1.TextResponse(200, "bye").SetHeader("Connection", "close")
	if closing.Persistent(req11) {
		t.Fatal("caller asked to close")
	}
	if got := string(closing.Encode(req11)); strings.Count(got, "Connection:") != 1 || !strings.Contains(got, "Connection: close\r\n") {
		t.Fatalf("got %q", got)
	}
	if !http1.TextResponse(200, "x").Persistent(req11) || http1.TextResponse(200, "x").Persistent(req10) {
		t.Fatal("default follows the request keep-alive rule")
	}
}

type discard struct{}

func (*discard) Process([]byte) error { return nil }
