//go:build linux || darwin || freebsd || netbsd || openbsd

package nbio

import (
	"golang.org/x/sys/unix"
)

// completeIOOp performs the actual syscall for a socket completion once its
// descriptor has been reported ready by the backend. This is the
// reactor-to-proactor translation: epoll/kqueue only tell us a descriptor
// is ready, so the loop itself issues the accept/recv/write/getsockopt call
// and stashes the result before appending the completion to the ready FIFO.
func (l *Loop) completeIOOp(c *Completion, ev pollEvent) {
	if c.removed {
		l.free(c)
		return
	}

	switch c.kind {
	case opAccept:
		nfd, sa, err := unix.Accept(c.fd)
		if err == unix.EAGAIN {
			l.submission = append(l.submission, c)
			return
		}
		if err == nil {
			_ = unix.SetNonblock(nfd, true)
		}
		c.resultFD = nfd
		c.resultAddr = sockaddrToAddr(sa, "tcp")
		c.resultErr = err
		l.completeAndArm(c)

	case opRecv:
		n, from, err := unix.Recvfrom(c.fd, c.buf, 0)
		if err == unix.EAGAIN {
			l.submission = append(l.submission, c)
			return
		}
		c.resultN = n
		c.resultAddr = sockaddrToAddr(from, c.network)
		c.resultErr = err
		l.completeAndArm(c)

	case opSend, opSendAll:
		n, err := unix.Write(c.fd, c.buf[c.sent:])
		if err == unix.EAGAIN {
			l.submission = append(l.submission, c)
			return
		}
		if err == nil {
			c.sent += n
		}
		if c.kind == opSendAll && err == nil && c.sent < len(c.buf) {
			l.submission = append(l.submission, c)
			return
		}
		c.resultN = c.sent
		c.resultErr = err
		l.completeAndArm(c)

	case opConnect:
		errno, gerr := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if gerr != nil {
			c.resultErr = gerr
		} else if errno != 0 {
			c.resultErr = unix.Errno(errno)
		}
		c.resultFD = c.fd
		l.completeAndArm(c)
	}
}
