//go:build linux || darwin || freebsd || netbsd || openbsd

package nbio

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Listen creates a non-blocking, listening TCP socket with SO_REUSEADDR and
// SO_REUSEPORT set, bound to address and returns its Handle. It is a
// synchronous setup call, not a completion — matching the design notes'
// "after listen, the server submits accept": listen itself is ordinary
// blocking setup work done once, before the loop starts ticking.
//
// SO_REUSEPORT lets a multi-process deployment bind the same port from
// several independent listeners, the way the server's SO_REUSEPORT dial
// helper did for UDP; the HTTP server here stays single-threaded per
// process, so its only use is allowing a quick restart to rebind before the
// old process's socket has closed.
func (l *Loop) Listen(network, address string, backlog int) (Handle, error) {
	tcpAddr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return InvalidHandle, err
	}
	ip := tcpAddr.IP
	if ip == nil {
		ip = net.IPv4zero
	}
	sa, family := sockaddrFromAddrPort(ip, tcpAddr.Port)

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return InvalidHandle, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return InvalidHandle, err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return InvalidHandle, err
	}
	if backlog <= 0 {
		backlog = 1024
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return InvalidHandle, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return InvalidHandle, err
	}
	return Handle{fd: fd}, nil
}

// ListenerAddr returns the "host:port" a Listen-created Handle is bound to,
// useful when Listen was asked for port 0 and the OS picked one.
func ListenerAddr(h Handle) (string, error) {
	return listenerAddr(h)
}

func listenerAddr(h Handle) (string, error) {
	sa, err := unix.Getsockname(h.fd)
	if err != nil {
		return "", err
	}
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IPv4(s.Addr[0], s.Addr[1], s.Addr[2], s.Addr[3])
		return net.JoinHostPort(ip.String(), strconv.Itoa(s.Port)), nil
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, s.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(s.Port)), nil
	default:
		return "", unix.EINVAL
	}
}

// dialSocket creates a non-blocking socket of the family implied by
// network/address and kicks off a connect(2); EINPROGRESS is expected and
// handled by the caller via writable-readiness.
func dialSocket(network, address string) (fd int, inProgress bool, err error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return -1, false, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return -1, false, err
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return -1, false, err
	}
	ip := ips[0]

	sockType := unix.SOCK_STREAM
	proto := unix.IPPROTO_TCP
	if len(network) >= 3 && network[:3] == "udp" {
		sockType = unix.SOCK_DGRAM
		proto = unix.IPPROTO_UDP
	}
	sa, family := sockaddrFromAddrPort(ip, port)

	fd, err = unix.Socket(family, sockType, proto)
	if err != nil {
		return -1, false, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, false, err
	}
	err = unix.Connect(fd, sa)
	if err == nil {
		return fd, false, nil
	}
	if err == unix.EINPROGRESS {
		return fd, true, nil
	}
	unix.Close(fd)
	return -1, false, err
}

func openRawSocket(family, sockType int) (int, error) {
	fd, err := unix.Socket(family, sockType, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
