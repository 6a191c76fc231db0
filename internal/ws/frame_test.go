package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maskPayload mutates payload in place, simulating what a real client does
// before sending a frame (RFC 6455 §5.3).
func maskPayload(payload []byte, key [4]byte) {
	for i := range payload {
		payload[i] ^= key[i%4]
	}
}

func encodeMaskedClientFrame(opcode Opcode, payload []byte, fin bool, key [4]byte) []byte {
	n := len(payload)
	b0 := byte(opcode)
	if fin {
		b0 |= 0x80
	}
	var header []byte
	switch {
	case n < 126:
		header = []byte{b0, byte(n) | 0x80}
	default:
		header = []byte{b0, 126 | 0x80, byte(n >> 8), byte(n)}
	}
	masked := make([]byte, len(payload))
	copy(masked, payload)
	maskPayload(masked, key)

	out := append([]byte{}, header...)
	out = append(out, key[:]...)
	out = append(out, masked...)
	return out
}

func TestDecodeFrame_MaskedTextRoundTrip(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	raw := encodeMaskedClientFrame(OpcodeText, []byte("hello"), true, key)

	fin, opcode, payload, consumed, err := decodeFrame(raw, noLimit)
	require.NoError(t, err)
	assert.True(t, fin)
	assert.Equal(t, OpcodeText, opcode)
	assert.Equal(t, "hello", string(payload))
	assert.Equal(t, len(raw), consumed)
}

func TestDecodeFrame_NeedsMoreData(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	raw := encodeMaskedClientFrame(OpcodeText, []byte("hello world"), true, key)

	_, _, _, _, err := decodeFrame(raw[:3], noLimit)
	assert.ErrorIs(t, err, errNeedMore)
}

func TestDecodeFrame_RejectsUnmaskedClientFrame(t *testing.T) {
	raw := EncodeFrame(OpcodeText, []byte("hi"), true) // server-style, unmasked
	_, _, _, _, err := decodeFrame(raw, noLimit)
	assert.ErrorIs(t, err, ErrUnmaskedClientFrame)
}

func TestDecodeFrame_RejectsReservedBits(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	raw := encodeMaskedClientFrame(OpcodeText, []byte("hi"), true, key)
	raw[0] |= 0x40 // set RSV1
	_, _, _, _, err := decodeFrame(raw, noLimit)
	assert.ErrorIs(t, err, ErrReservedBitsSet)
}

func TestDecodeFrame_RejectsOversizedFrame(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	raw := encodeMaskedClientFrame(OpcodeBinary, make([]byte, 200), true, key)
	_, _, _, _, err := decodeFrame(raw, 64)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Equal(t, CloseMessageTooBig, closeCodeForDecodeErr(err))
}

func TestDecodeFrame_ExtendedLength16(t *testing.T) {
	key := [4]byte{9, 9, 9, 9}
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	raw := encodeMaskedClientFrame(OpcodeBinary, payload, true, key)

	fin, opcode, got, consumed, err := decodeFrame(raw, noLimit)
	require.NoError(t, err)
	assert.True(t, fin)
	assert.Equal(t, OpcodeBinary, opcode)
	assert.Equal(t, payload, got)
	assert.Equal(t, len(raw), consumed)
}

func TestDecodeFrame_FragmentedControlFrameRejected(t *testing.T) {
	key := [4]byte{1, 1, 1, 1}
	raw := encodeMaskedClientFrame(OpcodePing, []byte("x"), false, key)
	_, _, _, _, err := decodeFrame(raw, noLimit)
	assert.ErrorIs(t, err, ErrControlFrameFragmented)
}

func TestEncodeFrame_UnmaskedSmallPayload(t *testing.T) {
	out := EncodeFrame(OpcodeText, []byte("hi"), true)
	require.Len(t, out, 4) // 2 header bytes + 2 payload bytes, no mask
	assert.Equal(t, byte(0x81), out[0])
	assert.Equal(t, byte(2), out[1])
	assert.Equal(t, "hi", string(out[2:]))
}

func TestCloseFrame_RoundTrip(t *testing.T) {
	payload := encodeCloseFrame(CloseNormalClosure, "bye")
	code, reason := parseCloseFrame(payload)
	assert.Equal(t, CloseNormalClosure, code)
	assert.Equal(t, "bye", reason)
}

func TestCloseFrame_EmptyPayload(t *testing.T) {
	code, reason := parseCloseFrame(nil)
	assert.Equal(t, CloseNoStatusReceived, code)
	assert.Equal(t, "", reason)
}
