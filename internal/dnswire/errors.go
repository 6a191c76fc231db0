// Package dnswire implements RFC 1035 DNS message encoding and decoding:
// the 12-byte header, the question section, and the subset of resource
// record types a resolving client needs (A, AAAA, CNAME). Name-compression
// pointers are followed when decoding; names are always encoded in full.
package dnswire

import "errors"

// ErrDNSError is the sentinel wrapped by every wire-format violation.
// Wrap it with fmt.Errorf("context: %w", ErrDNSError) to add detail.
var ErrDNSError = errors.New("dns wire error")
