package dnsclient

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hydraio/hydraio/internal/dnswire"
	"github.com/hydraio/hydraio/internal/nbio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNameserver answers every A query for wantName with addr, ignoring
// everything else (which leaves the client's query to time out, exercising
// the next-attempt path).
func fakeNameserver(t *testing.T, wantName string, addr net.IP, ttl uint32) (string, func()) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)

	stop := make(chan struct{})
	go func() {
		buf := make([]byte, dnswire.MaxMessageSize)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
			n, peer, err := conn.ReadFromUDP(buf)
			select {
			case <-stop:
				return
			default:
			}
			if err != nil {
				continue
			}
			req, perr := dnswire.ParsePacket(buf[:n])
			if perr != nil || len(req.Questions) != 1 {
				continue
			}
			q := req.Questions[0]
			if q.Name != wantName || dnswire.RecordType(q.Type) != dnswire.TypeA {
				continue
			}
			resp := dnswire.Packet{
				Header: dnswire.Header{ID: req.Header.ID, Flags: dnswire.QRFlag | dnswire.RDFlag, QDCount: 1, ANCount: 1},
				Questions: []dnswire.Question{q},
				Answers: []dnswire.Record{{
					Name: q.Name, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN),
					TTL: ttl, Data: []byte(addr.To4()),
				}},
			}
			out, merr := resp.Marshal()
			if merr != nil {
				continue
			}
			_, _ = conn.WriteToUDP(out, peer)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).String(), func() {
		close(stop)
		conn.Close()
	}
}

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// driveUntil ticks the loop until done returns true or the deadline passes.
func driveUntil(t *testing.T, loop *nbio.Loop, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		require.NoError(t, loop.Tick())
	}
}

func newTestClient(t *testing.T, loop *nbio.Loop, nameservers []string) *Client {
	hostsPath := writeTempFile(t, "127.0.0.1 literal.example\n")
	resolvPath := writeTempFile(t, "")

	c := New(loop, Config{
		Nameservers:       nameservers,
		NameserverTimeout: 200 * time.Millisecond,
		MaxTTL:            time.Hour,
		NegativeTTL:       50 * time.Millisecond,
		HostsPath:         hostsPath,
		ResolvConfPath:    resolvPath,
	})

	var hostsErr, resolvErr InitErrorKind
	initDone := false
	c.Init(func(he, re InitErrorKind) {
		hostsErr, resolvErr, initDone = he, re, true
	})
	driveUntil(t, loop, 2*time.Second, func() bool { return initDone })
	require.Equal(t, InitNone, hostsErr)
	require.Equal(t, InitNone, resolvErr)
	return c
}

func TestClient_ResolveViaNameserver(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	want := net.ParseIP("203.0.113.9")
	nsAddr, stop := fakeNameserver(t, "query.example", want, 60)
	defer stop()

	c := newTestClient(t, loop, []string{nsAddr})

	var rec *Record
	var resolveErr error
	done := false
	c.Resolve("query.example", func(r *Record, err error) {
		rec, resolveErr, done = r, err, true
	})
	driveUntil(t, loop, 2*time.Second, func() bool { return done })

	require.NoError(t, resolveErr)
	require.NotNil(t, rec)
	assert.True(t, want.Equal(rec.Address))
	assert.Equal(t, 60*time.Second, rec.TTL)
}

func TestClient_ResolveCoalescesConcurrentCallers(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	want := net.ParseIP("198.51.100.7")
	nsAddr, stop := fakeNameserver(t, "shared.example", want, 30)
	defer stop()

	c := newTestClient(t, loop, []string{nsAddr})

	results := 0
	for i := 0; i < 3; i++ {
		c.Resolve("shared.example", func(r *Record, err error) {
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.True(t, want.Equal(r.Address))
			results++
		})
	}
	driveUntil(t, loop, 2*time.Second, func() bool { return results == 3 })
	assert.Equal(t, 1, c.CacheSize(), "coalesced callers must share one cache entry")
}

func TestClient_ResolveHostsFileShortCircuit(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	c := newTestClient(t, loop, nil)

	var rec *Record
	var resolveErr error
	done := false
	c.Resolve("literal.example", func(r *Record, err error) {
		rec, resolveErr, done = r, err, true
	})
	assert.True(t, done, "hosts-file hit must resolve synchronously")
	require.NoError(t, resolveErr)
	require.NotNil(t, rec)
	assert.Equal(t, "127.0.0.1", rec.Address.String())
	assert.Zero(t, c.CacheSize(), "hosts-file hits never populate the cache")
}

// TestClient_ZeroTTLEvictsOnNextTick exercises the "evict on next tick"
// case: a record with TTL 0 must still get exactly one pending evictor
// rather than lingering in the cache forever.
func TestClient_ZeroTTLEvictsOnNextTick(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	want := net.ParseIP("203.0.113.50")
	nsAddr, stop := fakeNameserver(t, "zerottl.example", want, 0)
	defer stop()

	c := newTestClient(t, loop, []string{nsAddr})

	done := false
	c.Resolve("zerottl.example", func(r *Record, err error) {
		require.NoError(t, err)
		done = true
	})
	driveUntil(t, loop, 2*time.Second, func() bool { return done })
	require.Equal(t, 1, c.CacheSize())

	driveUntil(t, loop, 2*time.Second, func() bool { return c.CacheSize() == 0 })
}

func TestClient_ResolveNoNameservers(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	c := newTestClient(t, loop, nil)

	var resolveErr error
	done := false
	c.Resolve("nowhere.example", func(r *Record, err error) {
		resolveErr, done = err, true
	})
	assert.True(t, done)
	assert.ErrorIs(t, resolveErr, ErrNoNameservers)
}

func TestClient_ResolveBeforeInit(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	c := New(loop, Config{NameserverTimeout: time.Second})

	var resolveErr error
	done := false
	c.Resolve("anything.example", func(r *Record, err error) {
		resolveErr, done = err, true
	})
	assert.True(t, done)
	assert.ErrorIs(t, resolveErr, ErrNotInitialized)
}

func TestClient_ResolveUnresolvableAfterAllAttempts(t *testing.T) {
	loop, err := nbio.NewLoop()
	require.NoError(t, err)
	defer loop.Shutdown()

	// 127.0.0.1:1 is not listening; every attempt against it times out.
	c := newTestClient(t, loop, []string{"127.0.0.1:1"})
	c.nameserverTimeout = 30 * time.Millisecond

	var resolveErr error
	done := false
	c.Resolve("dead.example", func(r *Record, err error) {
		resolveErr, done = err, true
	})
	driveUntil(t, loop, 5*time.Second, func() bool { return done })
	assert.ErrorIs(t, resolveErr, ErrUnresolvable)
}
