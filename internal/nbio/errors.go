package nbio

import "errors"

// ErrClosed is returned to a completion's callback when its handle was
// closed (via Close) while the operation was registered with the backend.
var ErrClosed = errors.New("nbio: handle closed")

// ErrTimeout is delivered to a with_timeout-wrapped completion's callback
// when the attached deadline fires before the underlying operation
// completes.
var ErrTimeout = errors.New("nbio: operation timed out")

// ErrCancelled is never delivered to a callback — Remove guarantees the
// callback is never invoked — and nothing in the loop returns it.
var ErrCancelled = errors.New("nbio: completion cancelled")

// ErrLoopClosed is returned by Tick (and so by Run) once Shutdown has
// closed the loop; submission methods do not check for it.
var ErrLoopClosed = errors.New("nbio: loop is closed")

// ErrUnsupported is returned by operations with no implementation on the
// current OS backend (see poll_unsupported.go).
var ErrUnsupported = errors.New("nbio: operation unsupported on this platform")
