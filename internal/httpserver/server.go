package httpserver

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hydraio/hydraio/internal/nbio"
)

// Handler processes one parsed request and must eventually call
// resp.Respond(), either synchronously or from an async callback kicked
// off while handling (a DNS lookup, a Body read, a timer).
type Handler func(req *Request, resp *Response)

// Config bounds the resources a single connection may consume, mirroring
// spec.md §4.3's per-connection limits.
type Config struct {
	ListenBacklog  int
	IdleTimeout    time.Duration
	MaxHeaderCount int
	MaxLineLength  int
	MaxBodyBytes   int64

	// ShutdownDrain bounds how long Shutdown waits for in-flight
	// connections to finish their current response before closing them.
	ShutdownDrain time.Duration
}

// DefaultConfig mirrors the conservative limits a teacher TCP server would
// pick: generous enough for real clients, small enough to bound one
// misbehaving connection's memory.
func DefaultConfig() Config {
	return Config{
		ListenBacklog:  128,
		IdleTimeout:    60 * time.Second,
		MaxHeaderCount: 100,
		MaxLineLength:  8192,
		MaxBodyBytes:   10 << 20,
		ShutdownDrain:  5 * time.Second,
	}
}

// Server is the single-threaded HTTP/1.1 listener: one accept loop driven
// by the same nbio.Loop the caller ticks for everything else (DNS queries,
// SSE/WS timers). There is no per-connection goroutine; Connection's own
// callbacks drive its lifecycle entirely through loop completions.
type Server struct {
	loop    *nbio.Loop
	cfg     Config
	handler Handler
	log     *slog.Logger

	listener nbio.Handle
	conns    map[*Connection]struct{}

	shuttingDown bool
	drainTimer   *nbio.Completion
	onDrained    func()
}

// New creates a Server bound to loop. Nothing is accepted until Listen is
// called.
func New(loop *nbio.Loop, cfg Config, handler Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		loop:    loop,
		cfg:     cfg,
		handler: handler,
		log:     log,
		conns:   make(map[*Connection]struct{}),
	}
}

// Listen binds address and begins the at-most-one-outstanding-accept loop
// spec.md §4.3 describes. It returns once the listening socket is bound and
// the first accept is submitted; it does not block, since the caller drives
// the loop itself.
func (s *Server) Listen(address string) error {
	h, err := s.loop.Listen("tcp", address, s.cfg.ListenBacklog)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", address, err)
	}
	s.listener = h
	s.submitAccept()
	return nil
}

// Addr returns the "host:port" the listener is bound to, useful when
// Listen was given port 0 for an ephemeral port.
func (s *Server) Addr() (string, error) {
	return nbio.ListenerAddr(s.listener)
}

func (s *Server) submitAccept() {
	if s.shuttingDown {
		return
	}
	s.loop.Accept(s.listener, s.onAccept)
}

func (s *Server) onAccept(client nbio.Handle, addr net.Addr, err error) {
	if err != nil {
		if !s.shuttingDown {
			s.log.Warn("httpserver: accept failed", "error", err)
			s.submitAccept()
		}
		return
	}
	s.submitAccept()

	conn := newConnection(s, client, addr)
	s.conns[conn] = struct{}{}
	conn.beginRequest()
}

func (s *Server) connectionClosed(c *Connection) {
	delete(s.conns, c)
	if s.shuttingDown && len(s.conns) == 0 && s.onDrained != nil {
		done := s.onDrained
		s.onDrained = nil
		done()
	}
}

func (s *Server) isShuttingDown() bool { return s.shuttingDown }

// Shutdown stops accepting new connections and closes the listener. Any
// connection mid-response is allowed to finish and send its response (its
// next afterResponse sees isShuttingDown and closes instead of idling for
// keep-alive); once every connection has closed, or ShutdownDrain elapses,
// done is invoked.
func (s *Server) Shutdown(done func()) {
	if s.shuttingDown {
		return
	}
	s.shuttingDown = true
	s.loop.Close(s.listener, func(error) {})

	if len(s.conns) == 0 {
		done()
		return
	}
	s.onDrained = done
	s.drainTimer = s.loop.Timeout(s.cfg.ShutdownDrain, func(time.Time) {
		if s.onDrained == nil {
			return
		}
		for c := range s.conns {
			c.Close()
		}
		d := s.onDrained
		s.onDrained = nil
		d()
	})
}
