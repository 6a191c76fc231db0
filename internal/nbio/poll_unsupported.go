//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package nbio

// No IOCP backend ships in this package: a faithful IOCP implementation
// needs overlapped I/O structures threaded through package syscall/windows
// that are out of scope here. newBackend returns ErrUnsupported so callers
// get a clear failure at NewLoop time instead of a silent no-op poller.
func newBackend() (backend, error) {
	return nil, ErrUnsupported
}
