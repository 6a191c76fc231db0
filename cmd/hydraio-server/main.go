// Command hydraio-server runs the HTTP/1.1 + SSE + WebSocket stack on top
// of the single-threaded NBIO loop, all driven from one goroutine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hydraio/hydraio/internal/config"
	"github.com/hydraio/hydraio/internal/dnsclient"
	"github.com/hydraio/hydraio/internal/httpserver"
	"github.com/hydraio/hydraio/internal/logging"
	"github.com/hydraio/hydraio/internal/nbio"
	"github.com/hydraio/hydraio/internal/sse"
	"github.com/hydraio/hydraio/internal/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := config.ResolveConfigPath("")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})

	capacity := nbio.ProbeCapacity()
	logger.Info("hydraio-server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "capacity", capacity.String())

	loop, err := nbio.NewLoop()
	if err != nil {
		return fmt.Errorf("new loop: %w", err)
	}
	defer loop.Shutdown()

	dns := dnsclient.New(loop, dnsclient.Config{
		NameserverTimeout: time.Duration(cfg.DNS.NameserverTimeoutMS) * time.Millisecond,
		MaxTTL:            time.Duration(cfg.DNS.MaxTTLSeconds) * time.Second,
		NegativeTTL:       time.Duration(cfg.DNS.NegativeTTLSeconds) * time.Second,
		HostsPath:         cfg.DNS.HostsPath,
		ResolvConfPath:    cfg.DNS.ResolvConfPath,
		Nameservers:       cfg.DNS.Nameservers,
		Logger:            logger,
	})
	dns.Init(func(hostsErr, resolvErr dnsclient.InitErrorKind) {
		logger.Info("dns client initialized", "hosts", hostsErr.String(), "resolv_conf", resolvErr.String())
	})

	srvCfg := httpserver.Config{
		ListenBacklog:  cfg.Server.ListenBacklog,
		IdleTimeout:    time.Duration(cfg.Server.IdleKeepAliveSeconds) * time.Second,
		MaxHeaderCount: cfg.Server.MaxHeaderCount,
		MaxLineLength:  cfg.Server.MaxLineLength,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		ShutdownDrain:  time.Duration(cfg.Server.ShutdownDrainSeconds) * time.Second,
	}
	mux := newDemoMux(dns, logger, ws.Config{
		MaxFrameBytes:   cfg.WebSocket.MaxFrameBytes,
		MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
		CloseTimeout:    time.Duration(cfg.WebSocket.CloseTimeoutMS) * time.Millisecond,
	})
	srv := httpserver.New(loop, srvCfg, mux.handle, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.Listen(addr); err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if bound, err := srv.Addr(); err == nil {
		logger.Info("http server listening", "addr", bound)
	}

	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The loop keeps ticking, independent of the signal context, until
	// drain completes below: Shutdown's own completions (closing the
	// listener, flushing in-flight responses) still need a live loop.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g := new(errgroup.Group)
	g.Go(func() error {
		return loop.Run(loopCtx.Done())
	})

	<-sigCtx.Done()
	logger.Info("shutdown signal received, draining connections")

	drained := make(chan struct{})
	srv.Shutdown(func() { close(drained) })
	<-drained
	stopLoop()

	if err := g.Wait(); err != nil {
		return fmt.Errorf("loop stopped: %w", err)
	}
	logger.Info("hydraio-server stopped")
	return nil
}

// demoMux is a minimal path switch, not a general router (routing is
// explicitly out of scope); it exists only to give the HTTP, SSE, and
// WebSocket stacks a handler to exercise together.
type demoMux struct {
	dns   *dnsclient.Client
	log   *slog.Logger
	wsCfg ws.Config
}

func newDemoMux(dns *dnsclient.Client, log *slog.Logger, wsCfg ws.Config) *demoMux {
	return &demoMux{dns: dns, log: log, wsCfg: wsCfg}
}

func (m *demoMux) handle(req *httpserver.Request, resp *httpserver.Response) {
	path := req.Line.Target
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	switch path {
	case "/dns":
		m.handleDNS(req, resp)
	case "/events":
		m.handleEvents(req, resp)
	case "/ws":
		m.handleWS(req, resp)
	case "/echo":
		httpserver.Body(req, 1<<20, func(buf []byte, kind httpserver.BodyErrorKind) {
			if kind != httpserver.BodyErrorNone {
				resp.Status = kind.Status()
				resp.Respond()
				return
			}
			resp.SetHeader("Content-Type", "application/octet-stream")
			_, _ = resp.Write(buf)
			resp.Respond()
		})
	default:
		resp.Status = 200
		resp.SetHeader("Content-Type", "text/plain")
		_, _ = resp.Write([]byte("hydraio-server: try /dns?host=, /events, /ws, /echo"))
		resp.Respond()
	}
}

func (m *demoMux) handleDNS(req *httpserver.Request, resp *httpserver.Response) {
	query := ""
	if i := strings.IndexByte(req.Line.Target, '?'); i >= 0 {
		query = req.Line.Target[i+1:]
	}
	values, _ := url.ParseQuery(query)
	host := values.Get("host")
	if host == "" {
		resp.Status = 400
		_, _ = resp.Write([]byte("missing ?host="))
		resp.Respond()
		return
	}

	m.dns.Resolve(host, func(rec *dnsclient.Record, err error) {
		if err != nil {
			resp.Status = 502
			_, _ = resp.Write([]byte(err.Error()))
			resp.Respond()
			return
		}
		resp.SetHeader("Content-Type", "text/plain")
		_, _ = resp.Write([]byte(fmt.Sprintf("%s -> %s (ttl %s)", host, rec.Address, rec.TTL)))
		resp.Respond()
	})
}

func (m *demoMux) handleEvents(req *httpserver.Request, resp *httpserver.Response) {
	stream := sse.Start(resp, func() {
		m.log.Debug("sse stream closed")
	})
	stream.Event(sse.Event{Event: "hello", Data: "connected"})
}

func (m *demoMux) handleWS(req *httpserver.Request, resp *httpserver.Response) {
	_, err := ws.Accept(req, resp, m.wsCfg,
		func(c *ws.Conn, opcode ws.Opcode, payload []byte) {
			switch opcode {
			case ws.OpcodeText:
				_ = c.SendText(string(payload))
			case ws.OpcodeBinary:
				_ = c.SendBinary(payload)
			}
		},
		func(c *ws.Conn, code int, reason string) {
			m.log.Debug("ws connection closed", "code", code, "reason", reason)
		},
	)
	if err != nil {
		resp.Status = 400
		_, _ = resp.Write([]byte(err.Error()))
		resp.Respond()
	}
}
