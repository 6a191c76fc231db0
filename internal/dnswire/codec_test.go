package dnswire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNameRoundTrip(t *testing.T) {
	b, err := EncodeName("www.example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}, b)

	off := 0
	name, err := DecodeName(b, &off)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", name)
	assert.Equal(t, len(b), off)
}

func TestEncodeName_root(t *testing.T) {
	b, err := EncodeName("")
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)
}

func TestEncodeName_labelTooLong(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err := EncodeName(string(long))
	require.ErrorIs(t, err, ErrDNSError)
}

func TestDecodeName_compressionPointer(t *testing.T) {
	// "example.com" at offset 0, then a second name that points back to it.
	msg := append([]byte{}, mustEncode(t, "example.com")...)
	ptrOffset := len(msg)
	msg = append(msg, 0xC0, 0x00) // pointer to offset 0

	off := ptrOffset
	name, err := DecodeName(msg, &off)
	require.NoError(t, err)
	assert.Equal(t, "example.com", name)
	assert.Equal(t, ptrOffset+2, off)
}

func TestDecodeName_compressionLoop(t *testing.T) {
	msg := []byte{0xC0, 0x00} // points to itself
	off := 0
	_, err := DecodeName(msg, &off)
	require.ErrorIs(t, err, ErrDNSError)
}

func mustEncode(t *testing.T, name string) []byte {
	t.Helper()
	b, err := EncodeName(name)
	require.NoError(t, err)
	return b
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeName("Example.COM."))
}
