package httpserver

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/hydraio/hydraio/internal/nbio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func driveUntil(t *testing.T, loop *nbio.Loop, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !done() {
		require.True(t, time.Now().Before(deadline), "timed out waiting for condition")
		require.NoError(t, loop.Tick())
	}
}

func newTestServer(t *testing.T, handler Handler) (*Server, string) {
	t.Helper()
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Shutdown() })

	cfg := DefaultConfig()
	cfg.IdleTimeout = 2 * time.Second
	s := New(loop, cfg, handler, nil)
	require.NoError(t, s.Listen("127.0.0.1:0"))

	addr, err := s.Addr()
	require.NoError(t, err)

	go func() {
		for {
			if err := loop.Tick(); err != nil {
				return
			}
		}
	}()
	return s, addr
}

// dialAndRead performs a real blocking HTTP round trip against the test
// server's address, using net/http's client-side parser to validate the
// exact bytes the server serialized.
func dialAndRead(t *testing.T, addr, raw string) *http.Response {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	return resp
}

func TestServer_MinimalGET(t *testing.T) {
	_, addr := newTestServer(t, func(req *Request, resp *Response) {
		resp.SetHeader("Content-Type", "text/plain")
		_, _ = resp.Write([]byte("ok"))
		resp.Respond()
	})

	resp := dialAndRead(t, addr, "GET / HTTP/1.1\r\nHost: example\r\n\r\n")
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "2", resp.Header.Get("Content-Length"))
}

func TestServer_EchoPOSTBody(t *testing.T) {
	_, addr := newTestServer(t, func(req *Request, resp *Response) {
		Body(req, 1<<20, func(buf []byte, kind BodyErrorKind) {
			if kind != BodyErrorNone {
				resp.Status = kind.Status()
				resp.Respond()
				return
			}
			_, _ = resp.Write(buf)
			resp.Respond()
		})
	})

	payload := "hello from the client"
	req := "POST /echo HTTP/1.1\r\nHost: example\r\nContent-Length: " +
		strconv.Itoa(len(payload)) + "\r\n\r\n" + payload

	resp := dialAndRead(t, addr, req)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestServer_ChunkedRequestBody(t *testing.T) {
	_, addr := newTestServer(t, func(req *Request, resp *Response) {
		Body(req, 1<<20, func(buf []byte, kind BodyErrorKind) {
			require.Equal(t, BodyErrorNone, kind)
			_, _ = resp.Write(buf)
			resp.Respond()
		})
	})

	req := "POST /echo HTTP/1.1\r\nHost: example\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"

	resp := dialAndRead(t, addr, req)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestServer_KeepAliveSequentialRequests(t *testing.T) {
	_, addr := newTestServer(t, func(req *Request, resp *Response) {
		_, _ = resp.Write([]byte(req.Line.Target))
		resp.Respond()
	})

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(3*time.Second)))

	br := bufio.NewReader(conn)
	for _, target := range []string{"/a", "/bb", "/ccc"} {
		_, err := conn.Write([]byte("GET " + target + " HTTP/1.1\r\nHost: example\r\n\r\n"))
		require.NoError(t, err)

		resp, err := http.ReadResponse(br, nil)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, target, string(body))
	}
}

func TestServer_ConnectionCloseHeaderClosesAfterResponse(t *testing.T) {
	_, addr := newTestServer(t, func(req *Request, resp *Response) {
		_, _ = resp.Write([]byte("bye"))
		resp.Respond()
	})

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: example\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	require.NoError(t, err)
	_, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	// The server must close its end; a further read sees EOF.
	_, err = br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}
