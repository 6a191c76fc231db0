package dnsclient

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/hydraio/hydraio/internal/dnswire"
	"github.com/hydraio/hydraio/internal/nbio"
	"github.com/hydraio/hydraio/internal/pool"
)

// udpRecvBufs recycles the per-attempt UDP receive buffer: parseResponse
// extracts everything it needs into a Record before settle returns, so the
// buffer is free the moment the Recv callback completes.
var udpRecvBufs = pool.New(func() []byte { return make([]byte, dnswire.MaxMessageSize) })

// attempt is one (address family, nameserver) pair in the iteration order
// spec.md lays out: every nameserver is tried for A records before any is
// tried for AAAA.
type attempt struct {
	network string // "udp4" or "udp6", passed straight to nbio.Connect
	qtype   uint16
	ns      string
}

func buildAttempts(nameservers []string) []attempt {
	out := make([]attempt, 0, len(nameservers)*2)
	for _, ns := range nameservers {
		out = append(out, attempt{network: "udp4", qtype: uint16(dnswire.TypeA), ns: ns})
	}
	for _, ns := range nameservers {
		out = append(out, attempt{network: "udp6", qtype: uint16(dnswire.TypeAAAA), ns: ns})
	}
	return out
}

var transactionIDCounter uint32

// nextTransactionID hands out a cheap, locally-unique-enough DNS
// transaction ID. Nothing here needs the unguessability a resolver facing
// hostile responders would want — each attempt talks to one nameserver
// over one connected UDP socket, and a connected socket already rejects
// datagrams from anyone else.
func nextTransactionID() uint16 {
	return uint16(atomic.AddUint32(&transactionIDCounter, 1))
}

// queryState drives a single Resolve's worth of nameserver attempts
// against the shared cacheEntry it was created for.
type queryState struct {
	client   *Client
	hostname string
	entry    *cacheEntry
	attempts []attempt
	idx      int
	id       uint16
}

func (c *Client) startQuery(hostname string, entry *cacheEntry) {
	qs := &queryState{
		client:   c,
		hostname: hostname,
		entry:    entry,
		attempts: buildAttempts(c.nameservers),
		id:       nextTransactionID(),
	}
	qs.tryNext(nil)
}

func (qs *queryState) tryNext(lastErr error) {
	if qs.idx >= len(qs.attempts) {
		if lastErr == nil {
			lastErr = ErrUnresolvable
		}
		qs.finishAll(nil, ErrUnresolvable, lastErr)
		return
	}
	at := qs.attempts[qs.idx]
	qs.idx++
	qs.runAttempt(at)
}

// runAttempt drives one open_socket/send_all/recv exchange under a
// per-nameserver deadline. A connected UDP socket stands in for
// open_socket here: Connect resolves the literal address, binds a
// non-blocking datagram socket of the matching family, and sets it as the
// socket's default peer, which is exactly what a raw open_socket followed
// by connect() would do, without needing a second primitive.
func (qs *queryState) runAttempt(at attempt) {
	settled := false
	sock := nbio.InvalidHandle
	var deadline *nbio.Completion

	settle := func(rec *Record, err error) {
		if settled {
			return
		}
		settled = true
		if deadline != nil {
			deadline.Remove()
		}
		if sock.Valid() {
			qs.client.loop.Close(sock, func(error) {})
		}
		if rec != nil {
			qs.finishAll(rec, nil, nil)
			return
		}
		qs.tryNext(err)
	}

	deadline = qs.client.loop.Timeout(qs.client.nameserverTimeout, func(time.Time) {
		settle(nil, errNameserverTimeout)
	})

	ep := nbio.Endpoint{Network: at.network, Address: nameserverAddr(at.ns)}
	qs.client.loop.Connect(ep, func(h nbio.Handle, err error) {
		if settled {
			return
		}
		if err != nil {
			settle(nil, err)
			return
		}
		sock = h

		msg, merr := buildQuery(qs.id, qs.hostname, at.qtype)
		if merr != nil {
			settle(nil, merr)
			return
		}

		qs.client.loop.SendAll(h, msg, func(n int, err error) {
			if settled {
				return
			}
			if err != nil {
				settle(nil, err)
				return
			}

			buf := udpRecvBufs.Get()
			qs.client.loop.Recv(h, buf, "udp", func(n int, _ net.Addr, err error) {
				defer udpRecvBufs.Put(buf)
				if settled {
					return
				}
				if err != nil {
					settle(nil, err)
					return
				}
				rec, ttl, perr := parseResponse(buf[:n], qs.id, at.qtype)
				if perr != nil {
					settle(nil, perr)
					return
				}
				settle(&Record{Address: rec, TTL: ttl}, nil)
			})
		})
	})
}

// finishAll settles the cache entry and flushes every callback Resolve
// coalesced onto it while the query was in flight.
func (qs *queryState) finishAll(rec *Record, resolveErr, cacheErr error) {
	entry := qs.entry
	entry.resolving = false

	var ttl time.Duration
	if rec != nil {
		entry.record = rec
		entry.err = nil
		ttl = rec.TTL
		if qs.client.maxTTL > 0 && ttl > qs.client.maxTTL {
			ttl = qs.client.maxTTL
		}
	} else {
		entry.record = nil
		entry.err = resolveErr
		if entry.err == nil {
			entry.err = cacheErr
		}
		ttl = qs.client.negativeTTL
	}

	// Every settled, non-resolving entry gets exactly one pending evictor,
	// even at ttl == 0 (evicted on the very next tick): Loop.Timeout(0, ...)
	// still heap-inserts and fires on the following Tick rather than
	// running inline, so there's no reentrancy hazard in scheduling it
	// unconditionally here.
	hostname := qs.hostname
	entry.evictor = qs.client.loop.Timeout(ttl, func(time.Time) {
		qs.client.cache.evict(hostname)
	})

	callbacks := entry.callbacks
	entry.callbacks = nil
	for _, pc := range callbacks {
		pc.cb(entry.record, entry.err)
	}
}

// nameserverAddr resolves a configured nameserver entry to a dial address.
// resolv.conf lists bare hosts ("8.8.8.8", "2001:4860:4860::8888"), which
// get the standard port 53 appended; an entry that already carries a port
// (as tests configure, to point at an ephemeral loopback listener) is used
// unchanged.
func nameserverAddr(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(ns, "53")
}

func buildQuery(id uint16, hostname string, qtype uint16) ([]byte, error) {
	pkt := dnswire.Packet{
		Header: dnswire.Header{ID: id, Flags: dnswire.RDFlag, QDCount: 1},
		Questions: []dnswire.Question{
			{Name: hostname, Type: qtype, Class: uint16(dnswire.ClassIN)},
		},
	}
	return pkt.Marshal()
}

// parseResponse validates a reply against the query's id and returns the
// first answer record of type qtype, in the order the server sent them.
// Records are not shuffled, unlike resolvers that randomize among several
// addresses.
func parseResponse(data []byte, id uint16, qtype uint16) (net.IP, time.Duration, error) {
	pkt, err := dnswire.ParsePacket(data)
	if err != nil {
		return nil, 0, err
	}
	if pkt.Header.ID != id {
		return nil, 0, errTransactionMismatch
	}
	if !dnswire.IsResponse(pkt.Header.Flags) {
		return nil, 0, errNotAResponse
	}
	if dnswire.RCodeFromFlags(pkt.Header.Flags) != dnswire.RCodeNoError {
		return nil, 0, errServerRCode
	}
	for _, rr := range pkt.Answers {
		if rr.Type != qtype {
			continue
		}
		ip, ok := rr.Address()
		if !ok {
			continue
		}
		return ip, time.Duration(rr.TTL) * time.Second, nil
	}
	return nil, 0, errNoMatchingAnswer
}
