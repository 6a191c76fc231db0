package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/hydraio/hydraio/internal/httpserver"
)

// Config carries the WebSocketConfig knobs (internal/config) a Conn
// enforces: the per-frame and per-reassembled-message size limits, and
// the close-handshake force-close timeout. Zero-value fields fall back to
// "no limit" / "no timeout" rather than panicking or defaulting silently,
// so callers that forget to wire a field get unbounded behavior they can
// notice rather than a surprising cap.
type Config struct {
	MaxFrameBytes   int
	MaxMessageBytes int
	CloseTimeout    time.Duration
}

// websocketGUID is the fixed magic string RFC 6455 §1.3 concatenates onto
// Sec-WebSocket-Key before hashing.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var (
	ErrNotUpgrade = errors.New("ws: request did not ask for a websocket upgrade")
	ErrBadVersion = errors.New("ws: unsupported Sec-WebSocket-Version")
	ErrMissingKey = errors.New("ws: missing Sec-WebSocket-Key")
)

func computeAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// noLimit stands in for an unconfigured (zero-value) Config field: large
// enough that no real frame/message ever hits it, so callers that don't
// set a limit get "unbounded" rather than "rejects everything".
const noLimit = 1 << 62

// Accept validates req as a RFC 6455 upgrade request, writes the 101
// Switching Protocols response, and hands the connection over to a ws.Conn
// once that response has gone out. onMessage and onClose are invoked for
// every complete (post-reassembly) message and for the close handshake,
// respectively; either may be nil. cfg supplies the frame/message size
// limits and close-handshake timeout from WebSocketConfig.
func Accept(req *httpserver.Request, resp *httpserver.Response, cfg Config, onMessage func(c *Conn, opcode Opcode, payload []byte), onClose func(c *Conn, code int, reason string)) (*Conn, error) {
	if !req.WantsUpgrade() {
		return nil, ErrNotUpgrade
	}
	upgradeHdr, ok := req.Header("upgrade")
	if !ok || !strings.EqualFold(strings.TrimSpace(upgradeHdr), "websocket") {
		return nil, ErrNotUpgrade
	}
	version, ok := req.Header("sec-websocket-version")
	if !ok || strings.TrimSpace(version) != "13" {
		return nil, ErrBadVersion
	}
	key, ok := req.Header("sec-websocket-key")
	if !ok || key == "" {
		return nil, ErrMissingKey
	}

	maxFrameBytes := int64(cfg.MaxFrameBytes)
	if maxFrameBytes <= 0 {
		maxFrameBytes = noLimit
	}
	maxMessageBytes := cfg.MaxMessageBytes
	if maxMessageBytes < 0 {
		maxMessageBytes = 0
	}

	c := &Conn{
		http:            resp.Conn(),
		maxFrameBytes:   maxFrameBytes,
		maxMessageBytes: maxMessageBytes,
		closeTimeout:    cfg.CloseTimeout,
		onMessage:       onMessage,
		onClose:         onClose,
	}

	resp.Status = 101
	resp.SetHeader("Upgrade", "websocket")
	resp.SetHeader("Connection", "Upgrade")
	resp.SetHeader("Sec-WebSocket-Accept", computeAccept(key))
	resp.Upgrade(httpserver.StateUpgradedWS, c.handleRecv)
	resp.Respond()

	return c, nil
}
