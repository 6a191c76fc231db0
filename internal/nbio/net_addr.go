//go:build linux || darwin || freebsd || netbsd || openbsd

package nbio

import (
	"net"

	"golang.org/x/sys/unix"
)

func sockaddrToAddr(sa unix.Sockaddr, network string) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IPv4(s.Addr[0], s.Addr[1], s.Addr[2], s.Addr[3])
		return addrFor(network, ip, s.Port)
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, s.Addr[:])
		return addrFor(network, ip, s.Port)
	default:
		return nil
	}
}

func addrFor(network string, ip net.IP, port int) net.Addr {
	if len(network) >= 3 && network[:3] == "udp" {
		return &net.UDPAddr{IP: ip, Port: port}
	}
	return &net.TCPAddr{IP: ip, Port: port}
}

func sockaddrFromAddrPort(ip net.IP, port int) (unix.Sockaddr, int) {
	if v4 := ip.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)
		return sa, unix.AF_INET
	}
	v6 := ip.To16()
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], v6)
	return sa, unix.AF_INET6
}
