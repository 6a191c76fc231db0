package httpserver

import "net/http"

// Response is the server's side of one request/response exchange. Headers
// preserve insertion order, since spec.md's serialization writes "every
// header in insertion order."
type Response struct {
	Status int

	headerNames  []string
	headerValues map[string]string

	Cookies []Cookie

	body     []byte
	chunked  bool
	noLength bool
	sent     bool

	upgradeState ConnState
	upgradeRecv  func(buf []byte, err error)

	conn *Connection
}

func newResponse(conn *Connection) *Response {
	return &Response{
		Status:       200,
		headerValues: make(map[string]string),
		conn:         conn,
	}
}

// SetHeader sets a response header, preserving the position of the first
// insertion if the name was already set.
func (r *Response) SetHeader(name, value string) {
	if _, ok := r.headerValues[name]; !ok {
		r.headerNames = append(r.headerNames, name)
	}
	r.headerValues[name] = value
}

// Header returns a previously-set header value.
func (r *Response) Header(name string) (string, bool) {
	v, ok := r.headerValues[name]
	return v, ok
}

// SetCookie appends a Set-Cookie header.
func (r *Response) SetCookie(c Cookie) {
	r.Cookies = append(r.Cookies, c)
}

// Write appends to the response body. Calling Write after SetChunked is the
// normal way to stream a chunked response one piece at a time, though
// httpserver itself buffers everything until Respond.
func (r *Response) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return len(p), nil
}

// SetChunked marks the response to be sent with Transfer-Encoding: chunked
// instead of a Content-Length, for bodies whose length isn't known upfront.
func (r *Response) SetChunked() { r.chunked = true }

// SuppressLength omits both Content-Length and Transfer-Encoding framing,
// for a response whose body is an open-ended stream written directly to
// the connection after Respond (sse's handshake response).
func (r *Response) SuppressLength() { r.noLength = true }

// Upgrade marks this response as a protocol upgrade (sse or ws): once its
// bytes (normally just the 101 status line and headers) are flushed, the
// connection transfers raw-read ownership to onRecv instead of resuming
// the HTTP keep-alive loop. The handler must still set Status/headers and
// call Respond as usual.
func (r *Response) Upgrade(state ConnState, onRecv func(buf []byte, err error)) {
	r.upgradeState = state
	r.upgradeRecv = onRecv
}

// Conn exposes the owning Connection to sse/ws after Upgrade, for sending
// frames once the handshake response has gone out.
func (r *Response) Conn() *Connection { return r.conn }

// Respond finalizes and sends the response. It is the explicit completion
// spec.md §4.3 describes handlers calling once the response is ready,
// whether synchronously or after resuming from an async callback.
func (r *Response) Respond() {
	if r.sent {
		return
	}
	r.sent = true
	r.conn.sendResponse(r)
}

// StatusText mirrors net/http's reason phrase table, reused instead of
// hand-rolling one (net/http is part of the standard library already
// linked in by golang.org/x/net/http/httpguts elsewhere in this package).
func StatusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return "Unknown Status"
}
