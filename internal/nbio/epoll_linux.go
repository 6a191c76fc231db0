//go:build linux

package nbio

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollBackend is the Linux poller. golang.org/x/sys/unix gives us the raw
// epoll_create1/epoll_ctl/epoll_wait syscalls without cgo.
type epollBackend struct {
	epfd    int
	events  []unix.EpollEvent
	perFd   map[int]uint32 // fd -> currently-registered EPOLLIN|EPOLLOUT mask
}

func newBackend() (backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{
		epfd:   fd,
		events: make([]unix.EpollEvent, 256),
		perFd:  make(map[int]uint32),
	}, nil
}

func (b *epollBackend) apply(fd int, mask uint32) error {
	existing, known := b.perFd[fd]
	if mask == 0 {
		if !known {
			return nil
		}
		delete(b.perFd, fd)
		return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	ev := &unix.EpollEvent{Events: mask | unix.EPOLLERR | unix.EPOLLHUP, Fd: int32(fd)}
	if !known {
		b.perFd[fd] = mask
		return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, ev)
	}
	if existing == mask {
		return nil
	}
	b.perFd[fd] = mask
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (b *epollBackend) registerRead(fd int) error {
	return b.apply(fd, b.perFd[fd]|unix.EPOLLIN)
}

func (b *epollBackend) registerWrite(fd int) error {
	return b.apply(fd, b.perFd[fd]|unix.EPOLLOUT)
}

func (b *epollBackend) unregisterRead(fd int) error {
	return b.apply(fd, b.perFd[fd]&^uint32(unix.EPOLLIN))
}

func (b *epollBackend) unregisterWrite(fd int) error {
	return b.apply(fd, b.perFd[fd]&^uint32(unix.EPOLLOUT))
}

func (b *epollBackend) wait(timeout time.Duration) ([]pollEvent, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 && timeout > 0 {
			ms = 1
		}
	}
	n, err := unix.EpollWait(b.epfd, b.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]pollEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := b.events[i]
		out = append(out, pollEvent{
			fd:       int(ev.Fd),
			readable: ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			writable: ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			errored:  ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return out, nil
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}
