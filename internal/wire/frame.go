// Package wire implements the WebSocket wire protocol (RFC 6455) directly:
// the binary frame codec and the HTTP upgrade handshake. No framework is
// involved; both sides of the codec operate on raw byte streams.
package wire

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame opcodes.
const (
	OpContinuation = 0x0
	OpText         = 0x1
	OpBinary       = 0x2
	OpClose        = 0x8
	OpPing         = 0x9
	OpPong         = 0xA
)

const (
	finBit  = 0x80
	maskBit = 0x80

	// maxFramePayload bounds a single inbound frame. Control messages from
	// clients are small JSON objects; anything near this limit is abuse.
	maxFramePayload = 1 << 20
)

// ErrMalformedFrame indicates bytes that cannot be decoded as a frame from
// an upgraded client. The connection is treated as disconnected.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one decoded unit of the wire protocol.
type Frame struct {
	Opcode  byte
	Payload []byte
}

// EncodeText encodes payload as a single unmasked text frame (FIN=1), the
// form servers send. Length encoding: <=125 inline, <=65535 via a 2-byte
// big-endian extension, larger via an 8-byte extension.
func EncodeText(payload []byte) []byte {
	return encode(OpText, payload, false)
}

// EncodeMaskedText encodes payload as a single masked text frame, the form
// clients are required to send.
func EncodeMaskedText(payload []byte) []byte {
	return encode(OpText, payload, true)
}

// EncodeControl encodes a control frame (close, ping, pong) with an
// optional small payload. Server-side, so unmasked.
func EncodeControl(opcode byte, payload []byte) []byte {
	return encode(opcode, payload, false)
}

// EncodeMaskedControl encodes a masked control frame, the client-side form.
func EncodeMaskedControl(opcode byte, payload []byte) []byte {
	return encode(opcode, payload, true)
}

func encode(opcode byte, payload []byte, masked bool) []byte {
	n := len(payload)

	var header []byte
	switch {
	case n <= 125:
		header = []byte{finBit | opcode, byte(n)}
	case n <= 0xFFFF:
		header = []byte{finBit | opcode, 126, 0, 0}
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = []byte{finBit | opcode, 127, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.BigEndian.PutUint64(header[2:], uint64(n))
	}

	if !masked {
		out := make([]byte, 0, len(header)+n)
		out = append(out, header...)
		return append(out, payload...)
	}

	header[1] |= maskBit
	var key [4]byte
	if _, err := rand.Read(key[:]); err != nil {
		// crypto/rand never fails on supported platforms; the key only has
		// to be unpredictable, not recoverable.
		panic(err)
	}
	out := make([]byte, 0, len(header)+4+n)
	out = append(out, header...)
	out = append(out, key[:]...)
	for i, b := range payload {
		out = append(out, b^key[i%4])
	}
	return out
}

// ReadFrame reads and decodes exactly one frame from r.
//
// In strict mode frames without the mask bit are rejected, as the protocol
// requires for the client-to-server direction. The default (strict=false)
// preserves the legacy behavior of reading a mask key and unmasking
// unconditionally, which tolerates the mask bit being unset but garbles
// genuinely unmasked payloads. Partial reads surface as ErrMalformedFrame;
// a clean EOF before the first byte surfaces as io.EOF so callers can tell
// an orderly disconnect apart from a protocol violation.
func ReadFrame(r io.Reader, strict bool) (Frame, error) {
	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: reading header: %v", ErrMalformedFrame, err)
	}

	opcode := head[0] & 0x0F
	masked := head[1]&maskBit != 0
	length := uint64(head[1] & 0x7F)

	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, fmt.Errorf("%w: reading 16-bit length: %v", ErrMalformedFrame, err)
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, fmt.Errorf("%w: reading 64-bit length: %v", ErrMalformedFrame, err)
		}
		length = binary.BigEndian.Uint64(ext[:])
	}
	if length > maxFramePayload {
		return Frame{}, fmt.Errorf("%w: payload length %d exceeds limit", ErrMalformedFrame, length)
	}

	if strict && !masked {
		return Frame{}, fmt.Errorf("%w: client frame without mask bit", ErrMalformedFrame)
	}

	var key [4]byte
	unmask := masked || !strict
	if unmask {
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return Frame{}, fmt.Errorf("%w: reading mask key: %v", ErrMalformedFrame, err)
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("%w: reading payload: %v", ErrMalformedFrame, err)
	}
	if unmask {
		for i := range payload {
			payload[i] ^= key[i%4]
		}
	}

	return Frame{Opcode: opcode, Payload: payload}, nil
}

// ReadServerFrame reads one frame as sent by a server: unmasked, no mask
// key on the wire. Used by the client side of the protocol.
func ReadServerFrame(r io.Reader) (Frame, error) {
	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: reading header: %v", ErrMalformedFrame, err)
	}

	opcode := head[0] & 0x0F
	if head[1]&maskBit != 0 {
		return Frame{}, fmt.Errorf("%w: server frame with mask bit", ErrMalformedFrame)
	}
	length := uint64(head[1] & 0x7F)

	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, fmt.Errorf("%w: reading 16-bit length: %v", ErrMalformedFrame, err)
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, fmt.Errorf("%w: reading 64-bit length: %v", ErrMalformedFrame, err)
		}
		length = binary.BigEndian.Uint64(ext[:])
	}
	if length > maxFramePayload {
		return Frame{}, fmt.Errorf("%w: payload length %d exceeds limit", ErrMalformedFrame, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("%w: reading payload: %v", ErrMalformedFrame, err)
	}

	return Frame{Opcode: opcode, Payload: payload}, nil
}
