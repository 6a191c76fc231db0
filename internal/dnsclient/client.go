package dnsclient

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hydraio/hydraio/internal/nbio"
	"golang.org/x/net/idna"
)

// Config carries the tunables exposed through internal/config's DNSConfig.
type Config struct {
	Nameservers         []string // explicit override; empty means "read resolv.conf"
	NameserverTimeout   time.Duration
	MaxTTL              time.Duration
	NegativeTTL         time.Duration
	HostsPath           string
	ResolvConfPath      string
	Logger              *slog.Logger
}

// Client resolves hostnames over the loop it was constructed with. It must
// not be used across goroutines; like every other piece of the core, it is
// driven exclusively from the loop thread.
type Client struct {
	loop *nbio.Loop

	nameservers       []string
	nameserverTimeout time.Duration
	maxTTL            time.Duration
	negativeTTL       time.Duration
	hostsPath         string
	resolvConfPath    string

	hosts       []hostsEntry
	cache       *cache
	initialized bool

	log *slog.Logger
}

// New constructs a client; call Init before the first Resolve.
func New(loop *nbio.Loop, cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		loop:              loop,
		nameservers:       append([]string(nil), cfg.Nameservers...),
		nameserverTimeout: cfg.NameserverTimeout,
		maxTTL:            cfg.MaxTTL,
		negativeTTL:       cfg.NegativeTTL,
		hostsPath:         cfg.HostsPath,
		resolvConfPath:    cfg.ResolvConfPath,
		cache:             newCache(),
		log:               log,
	}
}

// InitCallback reports an independent error code per bootstrap file; the
// client is unusable for Resolve until it has fired.
type InitCallback func(hostsErr, resolvErr InitErrorKind)

// Init asynchronously reads the hosts file and resolver configuration
// through the loop's file operations. Both reads proceed concurrently;
// cb fires once both have settled.
func (c *Client) Init(cb InitCallback) {
	var hostsKind, resolvKind InitErrorKind
	remaining := 2
	finish := func() {
		remaining--
		if remaining == 0 {
			c.initialized = true
			if cb != nil {
				cb(hostsKind, resolvKind)
			}
		}
	}

	c.readFile(c.hostsPath, func(data []byte, kind InitErrorKind) {
		hostsKind = kind
		if kind == InitNone {
			c.hosts = parseHosts(data)
		}
		finish()
	})

	c.readFile(c.resolvConfPath, func(data []byte, kind InitErrorKind) {
		resolvKind = kind
		if kind == InitNone && len(c.nameservers) == 0 {
			c.nameservers = parseResolvConf(data)
		}
		finish()
	})
}

func (c *Client) readFile(path string, cb func(data []byte, kind InitErrorKind)) {
	if strings.TrimSpace(path) == "" {
		cb(nil, InitNoPath)
		return
	}
	c.loop.Open(path, os.O_RDONLY, 0, func(h nbio.Handle, err error) {
		if err != nil {
			c.log.Warn("dnsclient: open failed", "path", path, "error", err)
			cb(nil, InitFailedOpen)
			return
		}
		c.loop.ReadEntireFile(h, func(buf []byte, rerr error) {
			c.loop.Close(h, func(error) {})
			if rerr != nil {
				c.log.Warn("dnsclient: read failed", "path", path, "error", rerr)
				cb(nil, InitFailedRead)
				return
			}
			cb(buf, InitNone)
		})
	})
}

// Resolve implements the five-step resolution algorithm: in-flight
// coalescing, cache hit, hosts-file match, no-nameservers short circuit,
// or a fresh query.
func (c *Client) Resolve(hostname string, cb ResolveCallback) {
	if !c.initialized {
		cb(nil, ErrNotInitialized)
		return
	}
	hostname, err := normalizeHostname(hostname)
	if err != nil {
		cb(nil, err)
		return
	}

	if e, ok := c.cache.get(hostname); ok {
		if e.resolving {
			e.callbacks = append(e.callbacks, pendingCallback{cb: cb})
			return
		}
		cb(e.record, e.err)
		return
	}

	if ip, ok := lookupHosts(c.hosts, hostname); ok {
		cb(&Record{Address: ip, TTL: 0}, nil)
		return
	}

	if len(c.nameservers) == 0 {
		cb(nil, ErrNoNameservers)
		return
	}

	entry := c.cache.insertResolving(hostname, cb)
	c.startQuery(hostname, entry)
}

// normalizeHostname converts h to its lowercase ASCII (punycode, for any
// internationalized label) wire form via idna's Lookup profile, which is
// the same conversion a stub resolver applies before a question ever hits
// the wire — catching malformed labels here, as a validation error, rather
// than failing obscurely deep inside the query state machine.
func normalizeHostname(h string) (string, error) {
	h = strings.TrimSpace(h)
	h = strings.TrimSuffix(h, ".")
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", fmt.Errorf("dnsclient: invalid hostname %q: %w", h, err)
	}
	return strings.ToLower(ascii), nil
}

// Evict removes hostname's entry, per cache_evict. An unparseable hostname
// simply can't have an entry; Evict is then a silent no-op.
func (c *Client) Evict(hostname string) {
	if normalized, err := normalizeHostname(hostname); err == nil {
		c.cache.evict(normalized)
	}
}

// Clear evicts every non-resolving entry, per cache_clear.
func (c *Client) Clear() { c.cache.clear() }

// Shrink evicts entries until at most n remain, per cache_shrink.
func (c *Client) Shrink(n int) { c.cache.shrink(n) }

// CacheSize reports the current entry count, resolving and resolved alike.
func (c *Client) CacheSize() int { return c.cache.size() }
