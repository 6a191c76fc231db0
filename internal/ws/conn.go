package ws

import (
	"errors"
	"time"

	"github.com/hydraio/hydraio/internal/httpserver"
	"github.com/hydraio/hydraio/internal/nbio"
)

// ErrClosed is returned by Conn's send methods once the close handshake
// has started.
var ErrClosed = errors.New("ws: connection closed")

// Conn is one upgraded WebSocket connection. It owns raw reads on the
// underlying httpserver.Connection from the moment the 101 response is
// flushed until the close handshake completes.
type Conn struct {
	http *httpserver.Connection
	buf  []byte

	maxFrameBytes   int64
	maxMessageBytes int
	closeTimeout    time.Duration

	onMessage func(c *Conn, opcode Opcode, payload []byte)
	onClose   func(c *Conn, code int, reason string)

	fragmenting bool
	fragOpcode  Opcode
	fragBuf     []byte

	closeSent  bool
	closed     bool
	closeTimer *nbio.Completion
}

// ID returns the underlying connection's trace ID, for log correlation.
func (c *Conn) ID() string { return c.http.ID }

// SendText sends an unfragmented text frame.
func (c *Conn) SendText(s string) error { return c.sendFrame(OpcodeText, []byte(s)) }

// SendBinary sends an unfragmented binary frame.
func (c *Conn) SendBinary(p []byte) error { return c.sendFrame(OpcodeBinary, p) }

func (c *Conn) sendFrame(opcode Opcode, payload []byte) error {
	if c.closed {
		return ErrClosed
	}
	c.http.SendAll(EncodeFrame(opcode, payload, true), func(int, error) {})
	return nil
}

// Close starts the close handshake with the given RFC 6455 §7.4 status
// code and an optional human-readable reason, then closes the underlying
// socket once the close frame has been flushed.
func (c *Conn) Close(code int, reason string) {
	c.closeWithCode(code, reason)
}

// closeWithCode is the one place that sends a close frame and tears down
// the socket; Close, protocolError and handlePeerClose all funnel through
// it so the close_timeout force-close guard only needs to be armed once.
// The socket is closed as soon as the close frame has been flushed; the
// peer's answering close frame is not awaited. If the flush itself stalls,
// closeTimeout forces the socket shut rather than leaking the connection
// forever.
func (c *Conn) closeWithCode(code int, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeSent = true

	if c.closeTimeout > 0 {
		c.closeTimer = c.http.Loop().Timeout(c.closeTimeout, func(time.Time) {
			c.closeTimer = nil
			c.http.Close()
		})
	}

	buf := EncodeFrame(OpcodeClose, encodeCloseFrame(code, reason), true)
	c.http.SendAll(buf, func(int, error) {
		if c.closeTimer != nil {
			c.closeTimer.Remove()
			c.closeTimer = nil
		}
		c.http.Close()
	})
}

// handleRecv is the raw-read callback installed by Accept. It accumulates
// bytes, decodes as many complete frames as are buffered, and resubmits a
// read for more once the buffer runs dry.
func (c *Conn) handleRecv(data []byte, err error) {
	if c.closed {
		return
	}
	if err != nil {
		c.closed = true
		if c.onClose != nil {
			c.onClose(c, CloseAbnormalClosure, "")
		}
		return
	}

	c.buf = append(c.buf, data...)
	for {
		fin, opcode, payload, consumed, ferr := decodeFrame(c.buf, c.maxFrameBytes)
		if ferr == errNeedMore {
			break
		}
		if ferr != nil {
			c.protocolError(closeCodeForDecodeErr(ferr), ferr)
			return
		}
		c.buf = c.buf[consumed:]
		if !c.dispatch(fin, opcode, payload) {
			return
		}
	}

	if !c.closed {
		c.http.ContinueRecv(c.handleRecv)
	}
}

// closeCodeForDecodeErr maps a frame-decode or dispatch error to the RFC
// 6455 §7.4.1 close code it warrants: oversized frames/messages get 1009
// Message Too Big, everything else is a plain 1002 Protocol Error.
func closeCodeForDecodeErr(err error) int {
	switch err {
	case ErrFrameTooLarge, ErrMessageTooBig:
		return CloseMessageTooBig
	default:
		return CloseProtocolError
	}
}

func (c *Conn) protocolError(code int, err error) {
	c.closeWithCode(code, err.Error())
	if c.onClose != nil {
		c.onClose(c, code, err.Error())
	}
}

// dispatch handles one decoded frame; it returns false once the
// connection should stop reading (close received or about to close).
func (c *Conn) dispatch(fin bool, opcode Opcode, payload []byte) bool {
	switch opcode {
	case OpcodePing:
		c.http.SendAll(EncodeFrame(OpcodePong, payload, true), func(int, error) {})
		return true

	case OpcodePong:
		return true

	case OpcodeClose:
		code, reason := parseCloseFrame(payload)
		c.handlePeerClose(code, reason)
		return false

	case OpcodeContinuation:
		if !c.fragmenting {
			c.protocolError(CloseProtocolError, ErrUnexpectedContinuation)
			return false
		}
		if c.maxMessageBytes > 0 && len(c.fragBuf)+len(payload) > c.maxMessageBytes {
			c.protocolError(CloseMessageTooBig, ErrMessageTooBig)
			return false
		}
		c.fragBuf = append(c.fragBuf, payload...)
		if fin {
			op, buf := c.fragOpcode, c.fragBuf
			c.fragmenting = false
			c.fragBuf = nil
			if c.onMessage != nil {
				c.onMessage(c, op, buf)
			}
		}
		return true

	case OpcodeText, OpcodeBinary:
		if c.fragmenting {
			c.protocolError(CloseProtocolError, ErrUnexpectedContinuation)
			return false
		}
		if c.maxMessageBytes > 0 && len(payload) > c.maxMessageBytes {
			c.protocolError(CloseMessageTooBig, ErrMessageTooBig)
			return false
		}
		if fin {
			if c.onMessage != nil {
				c.onMessage(c, opcode, payload)
			}
			return true
		}
		c.fragmenting = true
		c.fragOpcode = opcode
		c.fragBuf = append([]byte(nil), payload...)
		return true

	default:
		c.protocolError(CloseProtocolError, ErrUnknownOpcode)
		return false
	}
}

// handlePeerClose answers a peer-initiated close frame per RFC 6455 §5.5.1
// by echoing the status code back, then closes the socket. handleRecv
// checks c.closed before ever reaching dispatch, so this path only runs
// when the peer closes first.
func (c *Conn) handlePeerClose(code int, reason string) {
	c.closeWithCode(code, reason)
	if c.onClose != nil {
		c.onClose(c, code, reason)
	}
}
