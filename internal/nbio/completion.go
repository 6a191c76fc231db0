package nbio

import (
	"net"
	"time"
)

type opKind uint8

const (
	opAccept opKind = iota
	opConnect
	opOpenSocket
	opRecv
	opSend
	opSendAll
	opRead
	opWrite
	opOpen
	opClose
	opReadEntireFile
	opTimeout
	opWithTimeout
	opNextTick
)

// Completion is a reified, owned record of one outstanding operation. The
// loop owns a Completion's storage from submission until its callback has
// returned, at which point it is cleared and returned to the internal/pool
// free-list.
//
// Completion deliberately has one field set per op kind rather than an
// interface per operation: the loop dispatches on kind, and payload fields
// are reused across kinds that don't overlap in a tick, which keeps the
// free-list one pool of a single flat struct instead of one pool per
// operation type.
type Completion struct {
	kind opKind

	fd      int
	network string
	address string
	buf     []byte
	off     int64
	sent    int // bytes already written, for send_all's internal retry loop
	flags   int

	deadline time.Time
	timerIdx int // index into the timer heap, -1 when not heap-resident

	wrapped   *Completion // set by WithTimeout: the op this timer races against
	wrapsMine *Completion // set on the wrapped op: the timer racing it

	removed    bool
	dispatched bool

	invoke func(c *Completion)

	resultN    int
	resultFD   int
	resultAddr net.Addr
	resultBuf  []byte
	resultErr  error
	resultTime time.Time

	loop *Loop
}

func (c *Completion) reset() {
	*c = Completion{timerIdx: -1, fd: -1}
}

// Remove cancels a pending completion. The callback is never invoked. It is
// idempotent: removing an already-dispatched or already-removed completion
// is a no-op.
func (c *Completion) Remove() {
	if c == nil || c.loop == nil {
		return
	}
	c.loop.remove(c)
}
