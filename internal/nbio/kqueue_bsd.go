//go:build darwin || freebsd || netbsd || openbsd

package nbio

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueBackend maintains per-fd read/write registration with one-shot
// EV_ADD filters, re-armed each time the loop registers interest again —
// matching the "one-shot events
// preferred" guidance for this backend.
type kqueueBackend struct {
	kq      int
	events  []unix.Kevent_t
	reading map[int]bool
	writing map[int]bool
}

func newBackend() (backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueBackend{
		kq:      kq,
		events:  make([]unix.Kevent_t, 256),
		reading: make(map[int]bool),
		writing: make(map[int]bool),
	}, nil
}

func (b *kqueueBackend) change(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: flags}
	_, err := unix.Kevent(b.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (b *kqueueBackend) registerRead(fd int) error {
	if b.reading[fd] {
		return nil
	}
	b.reading[fd] = true
	return b.change(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ONESHOT)
}

func (b *kqueueBackend) registerWrite(fd int) error {
	if b.writing[fd] {
		return nil
	}
	b.writing[fd] = true
	return b.change(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ONESHOT)
}

func (b *kqueueBackend) unregisterRead(fd int) error {
	if !b.reading[fd] {
		return nil
	}
	delete(b.reading, fd)
	return b.change(fd, unix.EVFILT_READ, unix.EV_DELETE)
}

func (b *kqueueBackend) unregisterWrite(fd int) error {
	if !b.writing[fd] {
		return nil
	}
	delete(b.writing, fd)
	return b.change(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
}

func (b *kqueueBackend) wait(timeout time.Duration) ([]pollEvent, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := unix.Kevent(b.kq, nil, b.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]pollEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := b.events[i]
		fd := int(ev.Ident)
		switch ev.Filter {
		case unix.EVFILT_READ:
			b.reading[fd] = false
			out = append(out, pollEvent{fd: fd, readable: true, errored: ev.Flags&unix.EV_ERROR != 0})
		case unix.EVFILT_WRITE:
			b.writing[fd] = false
			out = append(out, pollEvent{fd: fd, writable: true, errored: ev.Flags&unix.EV_ERROR != 0})
		}
	}
	return out, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}
