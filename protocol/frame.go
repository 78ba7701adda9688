// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket client framing: opcodes, frame decoding from a rolling buffer
// and masked frame encoding.

package protocol

import "fmt"

// Opcode is the 4-bit frame type.
type Opcode byte

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

const (
	FinBit  = 0x80
	MaskBit = 0x80
)

// Valid reports whether op is one of the six defined opcodes.
func (op Opcode) Valid() bool {
	switch op {
	case OpcodeContinuation, OpcodeText, OpcodeBinary, OpcodeClose, OpcodePing, OpcodePong:
		return true
	}
	return false
}

// IsControl reports whether op is close, ping or pong.
func (op Opcode) IsControl() bool {
	return op&0x8 != 0
}

func (op Opcode) String() string {
	switch op {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(0x%x)", byte(op))
	}
}

// Frame is a fully received WebSocket frame with its payload unmasked.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Payload []byte
}

// maskInPlace XORs buf with key, cycling the key every four bytes.
func maskInPlace(buf []byte, key [4]byte) {
	for i := 0; i < len(buf); i++ {
		buf[i] ^= key[i%4]
	}
}
