// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for the codecs and the event translator.

package benchmarks

import (
	"bytes"
	"testing"

	"github.com/momentics/hioload-rtm/http1"
	"github.com/momentics/hioload-rtm/protocol"
	"github.com/momentics/hioload-rtm/realtime"
)

var mask = [4]byte{1, 2, 3, 4}

// BenchmarkHTTPCodecSplitRequest feeds one request in 7-byte chunks.
func BenchmarkHTTPCodecSplitRequest(b *testing.B) {
	raw := []byte("POST /callback?code=abc&state=xyz HTTP/1.1\r\nHost: localhost\r\n" +
		"Content-Type: text/plain\r\nContent-Length: 11\r\n\r\nhello world")
	var got int
	codec := http1.NewCodec(func(*http1.Request) error { got++; return nil })

	b.SetBytes(int64(len(raw)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for off := 0; off < len(raw); off += 7 {
			end := min(off+7, len(raw))
			if err := codec.Process(raw[off:end]); err != nil {
				b.Fatal(err)
			}
		}
	}
	if got != b.N {
		b.Fatalf("parsed %d of %d", got, b.N)
	}
}

// BenchmarkResponseEncode serializes a small HTML response.
func BenchmarkResponseEncode(b *testing.B) {
	req := &http1.Request{Version: http1.HTTP11}
	resp := http1.HTMLResponse(200, "<html><body>ok</body></html>")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = resp.Encode(req)
	}
}

// BenchmarkFrameEncode masks a 4 KiB text frame into a reused buffer.
func BenchmarkFrameEncode(b *testing.B) {
	payload := bytes.Repeat([]byte{'x'}, 4096)
	var buf []byte
	b.SetBytes(int64(len(payload)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf = protocol.EncodeFrame(buf[:0], protocol.OpcodeText, payload, mask)
	}
}

// BenchmarkFrameDecode decodes a residual buffer of back-to-back frames.
func BenchmarkFrameDecode(b *testing.B) {
	var stream []byte
	for i := 0; i < 16; i++ {
		stream = protocol.EncodeFrame(stream, protocol.OpcodeText, bytes.Repeat([]byte{'y'}, 300), mask)
	}
	b.SetBytes(int64(len(stream)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf := stream
		for len(buf) > 0 {
			f, n, err := protocol.DecodeFrame(buf)
			if err != nil || f == nil {
				b.Fatalf("decode: %v", err)
			}
			buf = buf[n:]
		}
	}
}

// BenchmarkTranslateMessage parses and translates a message payload.
func BenchmarkTranslateMessage(b *testing.B) {
	payload := []byte(`{"type":"message","channel":"C024BE91L","user":"U2147483697",` +
		`"text":"Hello world","ts":"1355517523.000005"}`)
	b.SetBytes(int64(len(payload)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doc, err := realtime.ParseDocument(payload)
		if err != nil {
			b.Fatal(err)
		}
		if _, ok := realtime.Translate(doc); !ok {
			b.Fatal("no event")
		}
	}
}
