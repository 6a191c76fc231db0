// Package httpserver implements an HTTP/1.1 server on top of internal/nbio:
// an accept loop, incremental zero-copy request parsing, response
// serialization, keep-alive, and graceful shutdown. SSE and WebSocket
// upgrades (internal/sse, internal/ws) take ownership of a Connection once
// a handler calls their respective upgrade entry point.
package httpserver
