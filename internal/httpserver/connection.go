package httpserver

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/hydraio/hydraio/internal/nbio"
	"github.com/hydraio/hydraio/internal/pool"
)

// rawRecvBufs recycles the fixed-size buffers submitRawRecv hands to the
// loop for every upgraded (SSE/WS) read; sse/ws both copy out of the
// delivered slice before returning, so the buffer is safe to reuse the
// moment the callback completes.
var rawRecvBufs = pool.New(func() []byte { return make([]byte, 4096) })

// ConnState mirrors spec.md §3's HTTP connection state enum.
type ConnState int

const (
	StateIdle ConnState = iota
	StateReadingHeaders
	StateReadingBody
	StateHandling
	StateWriting
	StateClosing
	StateUpgradedSSE
	StateUpgradedWS
)

// Connection is one accepted TCP connection and the request/response pair
// it currently owns. Upgrading to SSE or WebSocket transfers ownership of
// reads/writes to that layer; Connection still backs the raw I/O.
type Connection struct {
	ID     string
	Remote net.Addr

	server *Server
	handle nbio.Handle
	log    *slog.Logger

	state     ConnState
	readBuf   []byte
	headerEnd int // index into readBuf just past the blank line, once found

	req  *Request
	resp *Response
	body *bodyReader

	keepAlive bool
	closed    bool

	idleTimer *nbio.Completion

	// onUpgrade records the raw-read callback sse/ws installed through
	// Response.Upgrade; takeOverForUpgrade sets it once reads are handed over.
	onUpgrade func(buf []byte, err error)
}

func newConnection(s *Server, h nbio.Handle, remote net.Addr) *Connection {
	return &Connection{
		ID:      uuid.NewString(),
		Remote:  remote,
		server:  s,
		handle:  h,
		log:     s.log,
		state:   StateIdle,
		readBuf: make([]byte, 0, 4096),
	}
}

func (c *Connection) beginRequest() {
	c.state = StateReadingHeaders
	c.req = &Request{Headers: make(map[string]string), conn: c}
	c.resp = newResponse(c)
	c.armIdleTimer()
	c.submitRecv()
}

func (c *Connection) armIdleTimer() {
	if c.idleTimer != nil {
		c.idleTimer.Remove()
	}
	c.idleTimer = c.server.loop.Timeout(c.server.cfg.IdleTimeout, func(time.Time) {
		c.log.Debug("httpserver: idle timeout", "conn", c.ID)
		c.close()
	})
}

func (c *Connection) submitRecv() {
	if len(c.readBuf) == cap(c.readBuf) {
		grown := make([]byte, len(c.readBuf), cap(c.readBuf)*2)
		copy(grown, c.readBuf)
		c.readBuf = grown
	}
	free := c.readBuf[len(c.readBuf):cap(c.readBuf)]
	c.server.loop.Recv(c.handle, free, "tcp", c.onRecv)
}

func (c *Connection) onRecv(n int, _ net.Addr, err error) {
	if c.closed {
		return
	}
	if err != nil {
		c.close()
		return
	}
	if n == 0 {
		c.close()
		return
	}
	c.armIdleTimer()
	c.readBuf = c.readBuf[:len(c.readBuf)+n]

	switch c.state {
	case StateReadingHeaders:
		c.tryParseHeaders()
	case StateReadingBody:
		c.body.process()
	case StateUpgradedSSE, StateUpgradedWS:
		// sse/ws installed their own onRecv via a different completion path;
		// a raw Connection should never still be receiving in these states.
	default:
		c.submitRecv()
	}
}

// tryParseHeaders looks for the blank line terminating the header block. If
// found it parses the request line and headers; otherwise it keeps reading,
// bounded by server.cfg.MaxLineLength * MaxHeaderCount as a crude header
// section size cap.
func (c *Connection) tryParseHeaders() {
	idx := bytes.Index(c.readBuf, []byte("\r\n\r\n"))
	if idx < 0 {
		if len(c.readBuf) > c.server.cfg.MaxHeaderCount*c.server.cfg.MaxLineLength {
			c.respondError(400, fmt.Errorf("%w: header section too large", ErrTooLarge))
			return
		}
		c.submitRecv()
		return
	}

	headerBlock := c.readBuf[:idx]
	c.headerEnd = idx + 4

	lineEnd := findCRLF(headerBlock)
	if lineEnd < 0 {
		c.respondError(400, ErrMalformedRequest)
		return
	}
	line, err := parseRequestLine(headerBlock[:lineEnd])
	if err != nil {
		c.respondError(400, err)
		return
	}
	c.req.Line = line

	rest := headerBlock[lineEnd+2:]
	count := 0
	for len(rest) > 0 {
		count++
		if count > c.server.cfg.MaxHeaderCount {
			c.respondError(431, fmt.Errorf("%w: too many headers", ErrTooLarge))
			return
		}
		le := findCRLF(rest)
		if le < 0 {
			le = len(rest)
		}
		if le > c.server.cfg.MaxLineLength {
			c.respondError(431, fmt.Errorf("%w: header line too long", ErrTooLarge))
			return
		}
		name, value, err := parseHeaderLine(rest[:le])
		if err != nil {
			c.respondError(400, err)
			return
		}
		c.req.Headers[name] = value
		if le == len(rest) {
			break
		}
		rest = rest[le+2:]
	}

	if c.req.ExpectsContinue() {
		c.server.loop.SendAll(c.handle, []byte("HTTP/1.1 100 Continue\r\n\r\n"), func(int, error) {})
	}

	c.keepAlive = !c.req.WantsClose()
	c.state = StateHandling
	c.invokeHandler()
}

func (c *Connection) invokeHandler() {
	h := c.server.handler
	if h == nil {
		c.respondError(500, fmt.Errorf("httpserver: no handler configured"))
		return
	}
	h(c.req, c.resp)
}

func (c *Connection) respondError(status int, err error) {
	c.log.Debug("httpserver: request error", "conn", c.ID, "status", status, "error", err)
	c.keepAlive = false
	resp := newResponse(c)
	resp.Status = status
	resp.SetHeader("Content-Type", "text/plain; charset=utf-8")
	_, _ = resp.Write([]byte(StatusText(status)))
	c.sendResponse(resp)
}

func (c *Connection) sendResponse(resp *Response) {
	if c.closed {
		return
	}
	c.state = StateWriting
	out := serializeResponse(resp)
	c.server.loop.SendAll(c.handle, out, func(n int, err error) {
		if err != nil {
			c.close()
			return
		}
		if resp.upgradeRecv != nil {
			c.takeOverForUpgrade(resp.upgradeState, resp.upgradeRecv)
			return
		}
		c.afterResponse()
	})
}

func (c *Connection) afterResponse() {
	if c.state == StateUpgradedSSE || c.state == StateUpgradedWS {
		return
	}
	if c.closed {
		return
	}
	if !c.keepAlive || c.server.isShuttingDown() || c.body != nil {
		// c.body != nil means the handler responded without draining a body
		// already in progress; the framing position in readBuf can no
		// longer be trusted to start a fresh request, so the connection
		// can't be reused.
		c.close()
		return
	}

	leftover := c.readBuf[c.headerEnd:]
	kept := make([]byte, len(leftover), 4096)
	copy(kept, leftover)
	c.readBuf = kept
	c.headerEnd = 0

	c.beginRequest()
}

// takeOverForUpgrade hands raw-read ownership to sse/ws: it stops
// httpserver's own recv loop and marks the connection in the given state.
// onRecv is resubmitted by the caller (via ContinueRecv) for each
// subsequent read, the same one-outstanding-recv-at-a-time discipline the
// plain request path uses.
func (c *Connection) takeOverForUpgrade(state ConnState, onRecv func(buf []byte, err error)) {
	c.state = state
	if c.idleTimer != nil {
		c.idleTimer.Remove()
		c.idleTimer = nil
	}
	c.onUpgrade = onRecv
	if idx := c.headerEnd; idx > 0 && idx < len(c.readBuf) {
		// bytes already pipelined past the header block belong to the
		// upgraded protocol (e.g. the first WS frame arrived in the same
		// packet as the handshake); deliver them before reading more.
		// onRecv submits the next read itself via ContinueRecv.
		onRecv(c.readBuf[idx:], nil)
		return
	}
	c.submitRawRecv(onRecv)
}

// ContinueRecv submits the next raw read for an upgraded connection. sse/ws
// call this after handling each onRecv delivery to keep receiving.
func (c *Connection) ContinueRecv(onRecv func(buf []byte, err error)) {
	if c.closed {
		return
	}
	c.submitRawRecv(onRecv)
}

func (c *Connection) submitRawRecv(cb func(buf []byte, err error)) {
	buf := rawRecvBufs.Get()
	c.server.loop.Recv(c.handle, buf, "tcp", func(n int, _ net.Addr, err error) {
		defer rawRecvBufs.Put(buf)
		if err != nil {
			cb(nil, err)
			return
		}
		cb(buf[:n], nil)
	})
}

// Loop exposes the underlying nbio.Loop so upgraded-protocol layers (ws's
// close-handshake timer) can schedule their own completions without being
// handed the whole Server.
func (c *Connection) Loop() *nbio.Loop { return c.server.loop }

// SendAll exposes the underlying loop's send_all to sse/ws without giving
// them the raw nbio.Loop.
func (c *Connection) SendAll(buf []byte, cb func(n int, err error)) {
	c.server.loop.SendAll(c.handle, buf, cb)
}

// Close closes the connection's socket. Safe to call more than once.
func (c *Connection) Close() { c.close() }

func (c *Connection) close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.idleTimer != nil {
		c.idleTimer.Remove()
	}
	if c.body != nil {
		br := c.body
		c.body = nil
		br.fail(BodyErrorUnexpectedEOF)
	}
	c.server.loop.Close(c.handle, func(error) {})
	c.server.connectionClosed(c)
}
