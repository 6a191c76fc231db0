package nbio

// Handle is an opaque reference to an OS-level file or socket descriptor.
// It is small enough to pass by value and carries no ownership semantics of
// its own — the loop does not close a Handle's underlying fd implicitly;
// callers submit an explicit Close.
type Handle struct {
	fd int
}

// Fd exposes the raw descriptor for interop with net or os-level helpers
// that need direct access to it.
func (h Handle) Fd() int { return h.fd }

// Valid reports whether the handle refers to a real descriptor.
func (h Handle) Valid() bool { return h.fd >= 0 }

// InvalidHandle is the zero value for "no descriptor."
var InvalidHandle = Handle{fd: -1}

// Endpoint names a dial or bind target. Network follows net.Dial
// conventions ("tcp", "tcp4", "tcp6", "udp", "udp4", "udp6").
type Endpoint struct {
	Network string
	Address string
}
