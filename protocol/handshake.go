// File: protocol/handshake.go
// Package protocol
// Client side of the WebSocket opening handshake: key and mask generation,
// the upgrade request and reading the server's response head.
package protocol

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/momentics/hioload-rtm/api"
)

const (
	WebSocketGUID           = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	MaxHandshakeHeadersSize = 8192
	DefaultQuery            = "encoding=text"
)

// HandshakeMode selects how much of the server response is verified.
type HandshakeMode int

const (
	// HandshakeLenient skips everything up to the first blank line.
	HandshakeLenient HandshakeMode = iota
	// HandshakeStrict also requires status 101 and a matching accept key.
	HandshakeStrict
)

// ParseHandshakeMode maps "lenient" and "strict"; empty means lenient.
func ParseHandshakeMode(s string) (HandshakeMode, error) {
	switch strings.ToLower(s) {
	case "", "lenient":
		return HandshakeLenient, nil
	case "strict":
		return HandshakeStrict, nil
	}
	return HandshakeLenient, fmt.Errorf("unknown handshake mode %q", s)
}

// NewKey returns a random base64-encoded 16-byte Sec-WebSocket-Key.
func NewKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// NewMask returns a random 4-byte masking key.
func NewMask() ([4]byte, error) {
	var m [4]byte
	_, err := rand.Read(m[:])
	return m, err
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's key.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// BuildUpgradeRequest renders the upgrade request for target, which is the
// path plus query.
func BuildUpgradeRequest(host, target, key string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", target)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	b.WriteString("Pragma: no-cache\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Cache-Control: no-cache\r\n")
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	fmt.Fprintf(&b, "Sec-WebSocket-Key: %s\r\n\r\n", key)
	return []byte(b.String())
}

// headEnd returns the index just past the first blank line, CRLF or bare
// LF, or -1.
func headEnd(buf []byte) int {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))
	switch {
	case crlf < 0 && lf < 0:
		return -1
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return crlf + 4
	default:
		return lf + 2
	}
}

// verifyHead checks the status line and accept key of a response head.
func verifyHead(head []byte, key string) error {
	lines := strings.Split(strings.ReplaceAll(string(head), "\r", ""), "\n")
	status := strings.Fields(lines[0])
	if len(status) < 2 || !strings.HasPrefix(status[0], "HTTP/1.") || status[1] != "101" {
		return fmt.Errorf("%w: unexpected status %q", api.ErrHandshake, lines[0])
	}
	want := ComputeAcceptKey(key)
	for _, l := range lines[1:] {
		name, value, ok := strings.Cut(l, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "sec-websocket-accept") {
			if strings.TrimSpace(value) != want {
				return fmt.Errorf("%w: accept key mismatch", api.ErrHandshake)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: missing Sec-WebSocket-Accept", api.ErrHandshake)
}
