// File: protocol/frame_codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// All-or-nothing frame decoding: a frame is returned only once every byte
// of it is buffered, so callers can keep appending reads to one buffer.

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/momentics/hioload-rtm/api"
)

// MaxFramePayload is the default payload limit of a Session.
const MaxFramePayload = 16 << 20

// DecodeFrame decodes the frame at the start of raw. It returns the frame
// and the number of bytes it occupies, or (nil, 0, nil) if raw does not
// yet hold a complete frame.
func DecodeFrame(raw []byte) (*Frame, int, error) {
	return DecodeFrameLimit(raw, 0)
}

// DecodeFrameLimit is DecodeFrame with a payload cap; limit <= 0 only
// requires the length to fit an int.
func DecodeFrameLimit(raw []byte, limit int) (*Frame, int, error) {
	if len(raw) < 2 {
		return nil, 0, nil
	}
	op := Opcode(raw[0] & 0x0F)
	if !op.Valid() {
		return nil, 0, fmt.Errorf("%w: 0x%x", api.ErrUnknownOpcode, byte(op))
	}
	fin := raw[0]&FinBit != 0
	masked := raw[1]&MaskBit != 0
	length := uint64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil
		}
		length = uint64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil
		}
		length = binary.BigEndian.Uint64(raw[offset:])
		offset += 8
	}

	if length > uint64(math.MaxInt-offset-4) {
		return nil, 0, fmt.Errorf("%w: %d", api.ErrInvalidFrameLength, length)
	}
	if limit > 0 && length > uint64(limit) {
		return nil, 0, fmt.Errorf("%w: %d exceeds %d", api.ErrInvalidFrameLength, length, limit)
	}

	var key [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, nil
		}
		copy(key[:], raw[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(raw) < total {
		return nil, 0, nil
	}
	payload := make([]byte, int(length))
	copy(payload, raw[offset:total])
	if masked {
		maskInPlace(payload, key)
	}
	return &Frame{Fin: fin, Opcode: op, Payload: payload}, total, nil
}

// EncodeFrame appends a final, masked frame to dst and returns the extended
// slice. payload is not modified.
func EncodeFrame(dst []byte, op Opcode, payload []byte, key [4]byte) []byte {
	var hdr [14]byte
	hdr[0] = FinBit | byte(op)
	n := len(payload)
	h := 2
	switch {
	case n <= 125:
		hdr[1] = MaskBit | byte(n)
	case n <= 0xFFFF:
		hdr[1] = MaskBit | 126
		binary.BigEndian.PutUint16(hdr[2:], uint16(n))
		h = 4
	default:
		hdr[1] = MaskBit | 127
		binary.BigEndian.PutUint64(hdr[2:], uint64(n))
		h = 10
	}
	copy(hdr[h:], key[:])
	h += 4

	dst = append(dst, hdr[:h]...)
	start := len(dst)
	dst = append(dst, payload...)
	maskInPlace(dst[start:], key)
	return dst
}
