package httpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestLine_Valid(t *testing.T) {
	line, err := parseRequestLine([]byte("GET /foo/bar?x=1 HTTP/1.1"))
	require.NoError(t, err)
	assert.Equal(t, "GET", line.Method)
	assert.Equal(t, "/foo/bar?x=1", line.Target)
	assert.Equal(t, "HTTP/1.1", line.Version)
}

func TestParseRequestLine_Malformed(t *testing.T) {
	cases := []string{
		"GET /foo",
		"GET  /foo HTTP/1.1",
		"GET /foo NOTHTTP/1.1",
		"",
	}
	for _, c := range cases {
		_, err := parseRequestLine([]byte(c))
		assert.Error(t, err, c)
	}
}

func TestParseHeaderLine(t *testing.T) {
	name, value, err := parseHeaderLine([]byte("Content-Type: text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "content-type", name)
	assert.Equal(t, "text/plain", value)
}

func TestParseHeaderLine_NoColon(t *testing.T) {
	_, _, err := parseHeaderLine([]byte("not-a-header"))
	assert.Error(t, err)
}

func TestParseHeaderLine_EmptyName(t *testing.T) {
	_, _, err := parseHeaderLine([]byte(": value"))
	assert.Error(t, err)
}

func TestParseChunkSizeLine(t *testing.T) {
	n, err := parseChunkSizeLine([]byte("1a"))
	require.NoError(t, err)
	assert.EqualValues(t, 26, n)

	n, err = parseChunkSizeLine([]byte("1a;ext=ignored"))
	require.NoError(t, err)
	assert.EqualValues(t, 26, n)

	_, err = parseChunkSizeLine([]byte("zzz"))
	assert.Error(t, err)
}

func TestFindCRLF(t *testing.T) {
	assert.Equal(t, 5, findCRLF([]byte("hello\r\nworld")))
	assert.Equal(t, -1, findCRLF([]byte("no newline here")))
}

func TestRequest_WantsClose(t *testing.T) {
	r := &Request{Line: RequestLine{Version: "HTTP/1.1"}, Headers: map[string]string{}}
	assert.False(t, r.WantsClose())

	r.Headers["connection"] = "close"
	assert.True(t, r.WantsClose())

	r10 := &Request{Line: RequestLine{Version: "HTTP/1.0"}, Headers: map[string]string{}}
	assert.True(t, r10.WantsClose())

	r10.Headers["connection"] = "keep-alive"
	assert.False(t, r10.WantsClose())
}

func TestRequest_ContentLength(t *testing.T) {
	r := &Request{Headers: map[string]string{"content-length": "42"}}
	assert.EqualValues(t, 42, r.ContentLength())

	r2 := &Request{Headers: map[string]string{}}
	assert.EqualValues(t, -1, r2.ContentLength())
}

func TestRequest_IsChunked(t *testing.T) {
	r := &Request{Headers: map[string]string{"transfer-encoding": "chunked"}}
	assert.True(t, r.IsChunked())

	r2 := &Request{Headers: map[string]string{}}
	assert.False(t, r2.IsChunked())
}
