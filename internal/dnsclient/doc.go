// Package dnsclient resolves hostnames to IPv4/IPv6 addresses without
// blocking the event loop: every lookup is driven through an
// *nbio.Loop, composing open_socket/send_all/recv/timeout/close the same
// way any other protocol state machine on the loop does.
//
// Results are cached by hostname with TTL-based eviction, and concurrent
// resolves for the same hostname while a query is in flight are coalesced
// onto the callback list of the single pending cache entry rather than
// issuing a second query.
package dnsclient
