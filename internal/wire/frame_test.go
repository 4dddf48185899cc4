package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// boundary payload sizes exercising all three length encodings.
var framingSizes = []int{0, 1, 125, 126, 65535, 65536}

func payloadOfSize(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte('a' + i%26)
	}
	return p
}

func TestMaskedRoundTrip(t *testing.T) {
	for _, n := range framingSizes {
		want := payloadOfSize(n)
		encoded := EncodeMaskedText(want)

		frame, err := ReadFrame(bytes.NewReader(encoded), true)
		if err != nil {
			t.Fatalf("size %d: ReadFrame: %v", n, err)
		}
		if frame.Opcode != OpText {
			t.Errorf("size %d: opcode = %#x, want %#x", n, frame.Opcode, OpText)
		}
		if !bytes.Equal(frame.Payload, want) {
			t.Errorf("size %d: payload mismatch after round trip", n)
		}
	}
}

func TestServerFrameRoundTrip(t *testing.T) {
	for _, n := range framingSizes {
		want := payloadOfSize(n)
		encoded := EncodeText(want)

		frame, err := ReadServerFrame(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("size %d: ReadServerFrame: %v", n, err)
		}
		if !bytes.Equal(frame.Payload, want) {
			t.Errorf("size %d: payload mismatch after round trip", n)
		}
	}
}

func TestEncodeTextLengthForms(t *testing.T) {
	for _, tc := range []struct {
		size       int
		lengthByte byte
		headerLen  int
	}{
		{0, 0, 2},
		{125, 125, 2},
		{126, 126, 4},
		{65535, 126, 4},
		{65536, 127, 10},
	} {
		out := EncodeText(payloadOfSize(tc.size))
		if out[0] != finBit|OpText {
			t.Errorf("size %d: first byte = %#x, want FIN|text", tc.size, out[0])
		}
		if out[1] != tc.lengthByte {
			t.Errorf("size %d: length byte = %d, want %d", tc.size, out[1], tc.lengthByte)
		}
		if len(out) != tc.headerLen+tc.size {
			t.Errorf("size %d: total length = %d, want %d", tc.size, len(out), tc.headerLen+tc.size)
		}
	}
}

func TestReadFrameStrictRejectsUnmasked(t *testing.T) {
	unmasked := EncodeText([]byte("hello"))

	if _, err := ReadFrame(bytes.NewReader(unmasked), true); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("strict mode: err = %v, want ErrMalformedFrame", err)
	}
}

func TestReadFrameLegacyAppliesMaskBlindly(t *testing.T) {
	// Legacy mode consumes four bytes as a mask key even when the mask bit
	// is unset, matching the behavior this service has always had: the
	// reader shifts into the payload and garbles it. The extra trailing
	// bytes stand in for whatever the peer sends next on the stream.
	stream := append(EncodeText([]byte("abcdefgh")), "next"...)

	frame, err := ReadFrame(bytes.NewReader(stream), false)
	if err != nil {
		t.Fatalf("legacy mode: %v", err)
	}
	if len(frame.Payload) != 8 {
		t.Fatalf("payload length = %d, want declared length 8", len(frame.Payload))
	}
	if bytes.Equal(frame.Payload, []byte("abcdefgh")) {
		t.Error("legacy mode should have garbled the unmasked payload")
	}
}

func TestReadFrameLegacyAcceptsMasked(t *testing.T) {
	// Properly masked frames decode identically in both modes.
	encoded := EncodeMaskedText([]byte("compliant client"))
	frame, err := ReadFrame(bytes.NewReader(encoded), false)
	if err != nil {
		t.Fatalf("legacy mode: %v", err)
	}
	if string(frame.Payload) != "compliant client" {
		t.Errorf("payload = %q", frame.Payload)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	full := EncodeMaskedText([]byte("truncate me"))
	for _, cut := range []int{1, 2, 3, 5, len(full) - 1} {
		if _, err := ReadFrame(bytes.NewReader(full[:cut]), true); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("cut at %d: err = %v, want ErrMalformedFrame", cut, err)
		}
	}
}

func TestReadFrameEOF(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader(nil), true); err != io.EOF {
		t.Errorf("empty stream: err = %v, want io.EOF", err)
	}
}

func TestReadFrameRejectsOversizedDeclaredLength(t *testing.T) {
	header := []byte{finBit | OpText, maskBit | 127, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if _, err := ReadFrame(bytes.NewReader(header), true); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("oversized length: err = %v, want ErrMalformedFrame", err)
	}
}

func TestControlFrames(t *testing.T) {
	ping := EncodeControl(OpPing, []byte("hb"))
	frame, err := ReadServerFrame(bytes.NewReader(ping))
	if err != nil {
		t.Fatalf("ReadServerFrame: %v", err)
	}
	if frame.Opcode != OpPing || string(frame.Payload) != "hb" {
		t.Errorf("got opcode %#x payload %q", frame.Opcode, frame.Payload)
	}
}

func TestMaskedFramesDifferPerEncode(t *testing.T) {
	a := EncodeMaskedText([]byte("same payload"))
	b := EncodeMaskedText([]byte("same payload"))
	if bytes.Equal(a, b) {
		t.Error("two masked encodings used the same key")
	}
}
