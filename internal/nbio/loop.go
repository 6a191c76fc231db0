package nbio

import (
	"container/heap"
	"time"

	"github.com/hydraio/hydraio/internal/pool"
)

// fdState tracks the at-most-one pending read op and at-most-one pending
// write op registered against a descriptor. A second Recv submitted on a
// socket that already has one outstanding is a caller bug; the loop does
// not special-case it beyond overwriting the slot, mirroring "at most one
// accept outstanding per listener at a time" from the accept loop design.
type fdState struct {
	readC  *Completion
	writeC *Completion
}

// Loop is the single-threaded event loop: one free-list of completions
// (backed by internal/pool so completion records are recycled instead of
// allocated fresh per operation), a FIFO of operations ready to dispatch, a
// FIFO of operations awaiting OS registration, a timer min-heap, and the OS
// polling backend.
type Loop struct {
	be backend

	completions *pool.Pool[*Completion]

	submission []*Completion
	ready      []*Completion
	nextTick   []*Completion

	timers timerHeap

	fds map[int]*fdState

	inFlight int64
	closed   bool
}

// NewLoop creates a loop bound to the compile-time-selected OS backend.
func NewLoop() (*Loop, error) {
	be, err := newBackend()
	if err != nil {
		return nil, err
	}
	return &Loop{
		be:          be,
		fds:         make(map[int]*fdState),
		completions: pool.New(func() *Completion { return &Completion{timerIdx: -1, fd: -1} }),
	}, nil
}

// InFlight returns the number of completions currently outstanding
// (submitted but not yet dispatched or cancelled).
func (l *Loop) InFlight() int64 { return l.inFlight }

func (l *Loop) alloc(kind opKind) *Completion {
	c := l.completions.Get()
	c.reset()
	c.kind = kind
	c.loop = l
	l.inFlight++
	return c
}

func (l *Loop) free(c *Completion) {
	l.inFlight--
	c.loop = nil
	c.invoke = nil
	l.completions.Put(c)
}

// remove implements Completion.Remove.
func (l *Loop) remove(c *Completion) {
	if c.dispatched || c.removed {
		return
	}
	c.removed = true
	l.detachFromIO(c)
	if c.wrapsMine != nil {
		l.timers.removeAt(c.wrapsMine)
		l.free(c.wrapsMine)
		c.wrapsMine = nil
	}
	if c.wrapped != nil {
		c.wrapped.wrapsMine = nil
		c.wrapped = nil
	}
}

func (l *Loop) detachFromIO(c *Completion) {
	switch c.kind {
	case opAccept, opConnect, opRecv, opSend, opSendAll:
		if st := l.fds[c.fd]; st != nil {
			if st.readC == c {
				st.readC = nil
				_ = l.be.unregisterRead(c.fd)
			}
			if st.writeC == c {
				st.writeC = nil
				_ = l.be.unregisterWrite(c.fd)
			}
			if st.readC == nil && st.writeC == nil {
				delete(l.fds, c.fd)
			}
		}
	case opTimeout, opWithTimeout:
		l.timers.removeAt(c)
	}
}

// Shutdown closes the loop's polling backend. Outstanding completions are
// not dispatched; callers are expected to have drained the loop via
// graceful shutdown before calling Shutdown. Named distinctly from the
// Close op (ops.go) that closes one Handle — this closes the loop itself.
func (l *Loop) Shutdown() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.be.close()
}

// Tick advances the loop one step, implementing the five-step algorithm:
// drain the ready FIFO, expire timers, compute the poll timeout, submit and
// poll, then return.
func (l *Loop) Tick() error {
	if l.closed {
		return ErrLoopClosed
	}

	// Step 1: drain completions made ready by the previous tick's timer
	// expiry, OS poll, and next_tick flush.
	ready := l.ready
	l.ready = nil
	for _, c := range ready {
		if c.removed {
			l.free(c)
			continue
		}
		c.dispatched = true
		if c.invoke != nil {
			c.invoke(c)
		}
		l.free(c)
	}

	// Step 2: expire timers into the ready-for-next-tick list.
	now := time.Now()
	for {
		top := l.timers.peek()
		if top == nil || top.deadline.After(now) {
			break
		}
		c := heap.Pop(&l.timers).(*Completion)
		if c.removed {
			l.free(c)
			continue
		}
		switch c.kind {
		case opTimeout:
			c.resultTime = now
			l.ready = append(l.ready, c)
		default:
			// with_timeout's internal deadline completion: race won by the
			// timer. Cancel the wrapped op at the OS level and deliver
			// ErrTimeout through it instead of through this completion.
			wrapped := c.wrapped
			if wrapped != nil && !wrapped.dispatched && !wrapped.removed {
				l.detachFromIO(wrapped)
				wrapped.resultErr = ErrTimeout
				wrapped.wrapsMine = nil
				l.ready = append(l.ready, wrapped)
			}
			l.free(c)
		}
	}

	// Step 3: compute the poll timeout.
	var timeout time.Duration = -1
	if top := l.timers.peek(); top != nil {
		timeout = time.Until(top.deadline)
		if timeout < 0 {
			timeout = 0
		}
	}
	if len(l.submission) > 0 || len(l.ready) > 0 || len(l.nextTick) > 0 {
		timeout = 0
	}
	if timeout < 0 && len(l.fds) == 0 {
		// No timer is pending and no descriptor is registered, so an
		// unbounded wait could never return.
		timeout = 0
	}

	// Step 4: submit queued operations, poll, translate OS completions.
	for _, c := range l.submission {
		if c.removed {
			l.free(c)
			continue
		}
		st := l.fds[c.fd]
		if st == nil {
			st = &fdState{}
			l.fds[c.fd] = st
		}
		switch c.kind {
		case opAccept, opRecv:
			st.readC = c
			_ = l.be.registerRead(c.fd)
		case opSend, opSendAll, opConnect:
			st.writeC = c
			_ = l.be.registerWrite(c.fd)
		}
	}
	l.submission = l.submission[:0]

	events, err := l.be.wait(timeout)
	if err != nil {
		return err
	}
	for _, ev := range events {
		st := l.fds[ev.fd]
		if st == nil {
			continue
		}
		if (ev.readable || ev.errored) && st.readC != nil {
			c := st.readC
			st.readC = nil
			_ = l.be.unregisterRead(ev.fd)
			l.completeIOOp(c, ev)
		}
		if (ev.writable || ev.errored) && st.writeC != nil {
			c := st.writeC
			st.writeC = nil
			_ = l.be.unregisterWrite(ev.fd)
			l.completeIOOp(c, ev)
		}
		if st.readC == nil && st.writeC == nil {
			delete(l.fds, ev.fd)
		}
	}

	// Flush completions scheduled via NextTick during this tick's
	// processing: they run after this tick's OS completions but before the
	// next poll, i.e. at the start of the following tick.
	if len(l.nextTick) > 0 {
		l.ready = append(l.ready, l.nextTick...)
		l.nextTick = nil
	}

	return nil
}

// Run ticks the loop until stop is closed or Tick returns a fatal error.
func (l *Loop) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := l.Tick(); err != nil {
			return err
		}
	}
}

func (l *Loop) scheduleNextTick(c *Completion) {
	l.nextTick = append(l.nextTick, c)
}

func (l *Loop) completeAndArm(c *Completion) {
	if c.wrapsMine != nil {
		l.timers.removeAt(c.wrapsMine)
		l.free(c.wrapsMine)
		c.wrapsMine = nil
	}
	l.ready = append(l.ready, c)
}
