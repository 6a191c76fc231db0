//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package nbio

import (
	"net"
	"time"
)

// On platforms without a backend (see poll_unsupported.go), NewLoop never
// succeeds, so these bodies are unreachable in practice; they exist so the
// package still builds everywhere the module targets.

func (l *Loop) Accept(h Handle, cb func(client Handle, addr net.Addr, err error)) *Completion {
	return l.immediateError(opAccept, func(c *Completion) { cb(InvalidHandle, nil, ErrUnsupported) })
}

func (l *Loop) Connect(ep Endpoint, cb func(h Handle, err error)) *Completion {
	return l.immediateError(opConnect, func(c *Completion) { cb(InvalidHandle, ErrUnsupported) })
}

func (l *Loop) OpenSocket(family, sockType int, cb func(h Handle, err error)) *Completion {
	return l.immediateError(opOpenSocket, func(c *Completion) { cb(InvalidHandle, ErrUnsupported) })
}

func (l *Loop) Recv(h Handle, buf []byte, network string, cb func(n int, addr net.Addr, err error)) *Completion {
	return l.immediateError(opRecv, func(c *Completion) { cb(0, nil, ErrUnsupported) })
}

func (l *Loop) Send(h Handle, buf []byte, cb func(n int, err error)) *Completion {
	return l.immediateError(opSend, func(c *Completion) { cb(0, ErrUnsupported) })
}

func (l *Loop) SendAll(h Handle, buf []byte, cb func(n int, err error)) *Completion {
	return l.immediateError(opSendAll, func(c *Completion) { cb(0, ErrUnsupported) })
}

func (l *Loop) Open(path string, flags int, perm uint32, cb func(h Handle, err error)) *Completion {
	return l.immediateError(opOpen, func(c *Completion) { cb(InvalidHandle, ErrUnsupported) })
}

func (l *Loop) Read(h Handle, buf []byte, offset int64, cb func(n int, err error)) *Completion {
	return l.immediateError(opRead, func(c *Completion) { cb(0, ErrUnsupported) })
}

func (l *Loop) Write(h Handle, buf []byte, offset int64, cb func(n int, err error)) *Completion {
	return l.immediateError(opWrite, func(c *Completion) { cb(0, ErrUnsupported) })
}

func (l *Loop) Close(h Handle, cb func(err error)) *Completion {
	return l.immediateError(opClose, func(c *Completion) { cb(ErrUnsupported) })
}

func (l *Loop) ReadEntireFile(h Handle, cb func(buf []byte, err error)) *Completion {
	return l.immediateError(opReadEntireFile, func(c *Completion) { cb(nil, ErrUnsupported) })
}

func (l *Loop) Timeout(d time.Duration, cb func(now time.Time)) *Completion {
	c := l.alloc(opTimeout)
	c.deadline = time.Now().Add(d)
	c.invoke = func(c *Completion) { cb(c.resultTime) }
	l.timers.insert(c)
	return c
}

func (l *Loop) WithTimeout(d time.Duration, target *Completion) *Completion {
	timer := l.alloc(opWithTimeout)
	timer.deadline = time.Now().Add(d)
	timer.wrapped = target
	target.wrapsMine = timer
	l.timers.insert(timer)
	return timer
}

func (l *Loop) NextTick(cb func()) *Completion {
	c := l.alloc(opNextTick)
	c.invoke = func(c *Completion) { cb() }
	l.scheduleNextTick(c)
	return c
}

func (l *Loop) immediateError(kind opKind, invoke func(c *Completion)) *Completion {
	c := l.alloc(kind)
	c.invoke = invoke
	l.scheduleNextTick(c)
	return c
}

func (l *Loop) Listen(network, address string, backlog int) (Handle, error) {
	return InvalidHandle, ErrUnsupported
}

func ListenerAddr(h Handle) (string, error) {
	return "", ErrUnsupported
}
