package dnsclient

import "github.com/hydraio/hydraio/internal/nbio"

// ResolveCallback is invoked exactly once per Resolve call, whether the
// answer came from the hosts file, the cache, or a freshly completed
// query.
type ResolveCallback func(rec *Record, err error)

type pendingCallback struct {
	cb ResolveCallback
}

// cacheEntry mirrors the data model directly: resolving=true implies
// callbacks may be non-empty and record is unset; resolving=false implies
// either record holds a valid address or err is set, and evictor is a
// pending timeout that will delete the entry. There is no mutex here —
// the cache is only ever touched from the loop thread that owns it,
// unlike the teacher's TTLCache which guarded concurrent worker-goroutine
// access with sync.Mutex.
type cacheEntry struct {
	resolving bool
	record    *Record
	err       error
	callbacks []pendingCallback
	evictor   *nbio.Completion
}

// cache is keyed by hostname. It never holds two entries for the same
// name: Resolve always checks for an existing entry before inserting one.
type cache struct {
	entries map[string]*cacheEntry
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

func (c *cache) get(hostname string) (*cacheEntry, bool) {
	e, ok := c.entries[hostname]
	return e, ok
}

func (c *cache) insertResolving(hostname string, first ResolveCallback) *cacheEntry {
	e := &cacheEntry{resolving: true}
	if first != nil {
		e.callbacks = append(e.callbacks, pendingCallback{cb: first})
	}
	c.entries[hostname] = e
	return e
}

// evict removes hostname's entry and cancels its pending evictor. It is
// the cache's half of cache_evict. In-flight query timers of a resolving
// entry are left running; they belong to the query state, not the entry.
func (c *cache) evict(hostname string) {
	if e, ok := c.entries[hostname]; ok {
		if e.evictor != nil {
			e.evictor.Remove()
		}
		delete(c.entries, hostname)
	}
}

// clear evicts every non-resolving entry, leaving in-flight queries
// untouched.
func (c *cache) clear() {
	for hostname, e := range c.entries {
		if e.resolving {
			continue
		}
		c.evict(hostname)
	}
}

// shrink evicts entries, in map iteration order, until at most n remain.
// In-progress queries are never interrupted to make room.
func (c *cache) shrink(n int) {
	if len(c.entries) <= n {
		return
	}
	for hostname, e := range c.entries {
		if len(c.entries) <= n {
			return
		}
		if e.resolving {
			continue
		}
		c.evict(hostname)
	}
}

func (c *cache) size() int { return len(c.entries) }
