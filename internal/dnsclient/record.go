package dnsclient

import (
	"net"
	"time"
)

// Record is the resolved address a lookup completes with: one address and
// the TTL it should be cached for.
type Record struct {
	Address net.IP
	TTL     time.Duration
}
