// Package ws implements the server side of RFC 6455 WebSocket framing on
// top of internal/httpserver: the upgrade handshake, frame parsing with
// fragmentation reassembly, automatic ping/pong, and the close handshake.
// Framing is hand-rolled rather than built on a dependency: it IS the
// domain logic this package specifies, not an ambient concern.
package ws
