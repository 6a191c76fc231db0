//go:build linux || darwin || freebsd || netbsd || openbsd

package nbio

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Accept submits a non-blocking accept on a listening socket. Per the
// accept-loop contract, at most one Accept should be outstanding per
// listener at a time; the HTTP server resubmits from inside cb.
func (l *Loop) Accept(h Handle, cb func(client Handle, addr net.Addr, err error)) *Completion {
	c := l.alloc(opAccept)
	c.fd = h.fd
	c.invoke = func(c *Completion) {
		client := InvalidHandle
		if c.resultErr == nil {
			client = Handle{fd: c.resultFD}
		}
		cb(client, c.resultAddr, c.resultErr)
	}
	l.submission = append(l.submission, c)
	return c
}

// Connect dials ep, completing once the connection succeeds or fails.
func (l *Loop) Connect(ep Endpoint, cb func(h Handle, err error)) *Completion {
	c := l.alloc(opConnect)
	c.invoke = func(c *Completion) {
		h := InvalidHandle
		if c.resultErr == nil {
			h = Handle{fd: c.resultFD}
		}
		cb(h, c.resultErr)
	}

	fd, inProgress, err := dialSocket(ep.Network, ep.Address)
	if err != nil {
		c.resultErr = err
		l.scheduleNextTick(c)
		return c
	}
	c.fd = fd
	if !inProgress {
		c.resultFD = fd
		l.scheduleNextTick(c)
		return c
	}
	l.submission = append(l.submission, c)
	return c
}

// OpenSocket creates a socket of the given family/type. Creation is
// synchronous; the callback fires on the next tick for uniformity with
// every other operation.
func (l *Loop) OpenSocket(family, sockType int, cb func(h Handle, err error)) *Completion {
	c := l.alloc(opOpenSocket)
	c.invoke = func(c *Completion) {
		h := InvalidHandle
		if c.resultErr == nil {
			h = Handle{fd: c.resultFD}
		}
		cb(h, c.resultErr)
	}
	fd, err := openRawSocket(family, sockType)
	c.resultFD = fd
	c.resultErr = err
	l.scheduleNextTick(c)
	return c
}

// Recv submits a non-blocking receive. For connectionless sockets, addr is
// the sender; for stream sockets it is nil.
func (l *Loop) Recv(h Handle, buf []byte, network string, cb func(n int, addr net.Addr, err error)) *Completion {
	c := l.alloc(opRecv)
	c.fd = h.fd
	c.buf = buf
	c.network = network
	c.invoke = func(c *Completion) { cb(c.resultN, c.resultAddr, c.resultErr) }
	l.submission = append(l.submission, c)
	return c
}

// Send submits a single non-blocking write; n may be less than len(buf).
func (l *Loop) Send(h Handle, buf []byte, cb func(n int, err error)) *Completion {
	c := l.alloc(opSend)
	c.fd = h.fd
	c.buf = buf
	c.invoke = func(c *Completion) { cb(c.resultN, c.resultErr) }
	l.submission = append(l.submission, c)
	return c
}

// SendAll loops internally until every byte of buf has been written or an
// error occurs; the caller never sees a short write.
func (l *Loop) SendAll(h Handle, buf []byte, cb func(n int, err error)) *Completion {
	c := l.alloc(opSendAll)
	c.fd = h.fd
	c.buf = buf
	c.invoke = func(c *Completion) { cb(c.resultN, c.resultErr) }
	l.submission = append(l.submission, c)
	return c
}

// Open opens a file synchronously and delivers the Handle on the next tick.
func (l *Loop) Open(path string, flags int, perm uint32, cb func(h Handle, err error)) *Completion {
	c := l.alloc(opOpen)
	c.invoke = func(c *Completion) {
		h := InvalidHandle
		if c.resultErr == nil {
			h = Handle{fd: c.resultFD}
		}
		cb(h, c.resultErr)
	}
	fd, err := unix.Open(path, flags, perm)
	c.resultFD = fd
	c.resultErr = err
	l.scheduleNextTick(c)
	return c
}

// Read performs a positioned read (pread) synchronously and defers the
// callback to the next tick.
func (l *Loop) Read(h Handle, buf []byte, offset int64, cb func(n int, err error)) *Completion {
	c := l.alloc(opRead)
	c.invoke = func(c *Completion) { cb(c.resultN, c.resultErr) }
	n, err := unix.Pread(h.fd, buf, offset)
	c.resultN = n
	c.resultErr = err
	l.scheduleNextTick(c)
	return c
}

// Write performs a positioned write (pwrite) synchronously and defers the
// callback to the next tick.
func (l *Loop) Write(h Handle, buf []byte, offset int64, cb func(n int, err error)) *Completion {
	c := l.alloc(opWrite)
	c.invoke = func(c *Completion) { cb(c.resultN, c.resultErr) }
	n, err := unix.Pwrite(h.fd, buf, offset)
	c.resultN = n
	c.resultErr = err
	l.scheduleNextTick(c)
	return c
}

// Close closes a descriptor synchronously and defers the callback.
func (l *Loop) Close(h Handle, cb func(err error)) *Completion {
	c := l.alloc(opClose)
	c.invoke = func(c *Completion) { cb(c.resultErr) }
	if st := l.fds[h.fd]; st != nil {
		for _, p := range []*Completion{st.readC, st.writeC} {
			if p != nil {
				p.resultErr = ErrClosed
				l.completeAndArm(p)
			}
		}
		_ = l.be.unregisterRead(h.fd)
		_ = l.be.unregisterWrite(h.fd)
		delete(l.fds, h.fd)
	}
	c.resultErr = unix.Close(h.fd)
	l.scheduleNextTick(c)
	return c
}

// ReadEntireFile stats then reads a file's full contents synchronously,
// delivering the buffer on the next tick. Used by the DNS client to load
// /etc/resolv.conf and /etc/hosts.
func (l *Loop) ReadEntireFile(h Handle, cb func(buf []byte, err error)) *Completion {
	c := l.alloc(opReadEntireFile)
	c.invoke = func(c *Completion) { cb(c.resultBuf, c.resultErr) }

	var st unix.Stat_t
	if err := unix.Fstat(h.fd, &st); err != nil {
		c.resultErr = err
		l.scheduleNextTick(c)
		return c
	}
	buf := make([]byte, 0, st.Size)
	chunk := make([]byte, 32*1024)
	off := int64(0)
	for {
		n, err := unix.Pread(h.fd, chunk, off)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			off += int64(n)
		}
		if err != nil {
			c.resultErr = err
			break
		}
		if n == 0 {
			break
		}
	}
	c.resultBuf = buf
	l.scheduleNextTick(c)
	return c
}

// Timeout fires cb at now+d, measured in monotonic time.
func (l *Loop) Timeout(d time.Duration, cb func(now time.Time)) *Completion {
	c := l.alloc(opTimeout)
	c.deadline = time.Now().Add(d)
	c.invoke = func(c *Completion) { cb(c.resultTime) }
	l.timers.insert(c)
	return c
}

// WithTimeout races d against an already-submitted completion. Whichever
// fires first wins; the other is cancelled. When the timer wins, target's
// own callback is invoked with ErrTimeout instead of its usual result.
func (l *Loop) WithTimeout(d time.Duration, target *Completion) *Completion {
	timer := l.alloc(opWithTimeout)
	timer.deadline = time.Now().Add(d)
	timer.wrapped = target
	target.wrapsMine = timer
	l.timers.insert(timer)
	return timer
}

// NextTick defers cb to run after the current tick's OS completions but
// before the loop polls again.
func (l *Loop) NextTick(cb func()) *Completion {
	c := l.alloc(opNextTick)
	c.invoke = func(c *Completion) { cb() }
	l.scheduleNextTick(c)
	return c
}
