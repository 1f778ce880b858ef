// Package udt implements the UDT-derived framing layer: addresses,
// sequence numbers, the bit-packed packet header, and the Packet
// buffer type. The wire bit layout is defined in header.go and
// nowhere else.
package udt

import (
	"fmt"
	"net"
)

// SockAddr is a comparable (host, port) pair used as a peer key.
// Host is the IPv4 address in big-endian integer form. The zero value
// is the distinguished null address.
type SockAddr struct {
	Host uint32
	Port uint16
}

// NullSockAddr is the "unset" address.
var NullSockAddr = SockAddr{}

// SockAddrFromIP builds a SockAddr from a net.IP (IPv4 only) and port.
// Non-IPv4 input yields the null address.
func SockAddrFromIP(ip net.IP, port uint16) SockAddr {
	v4 := ip.To4()
	if v4 == nil {
		return NullSockAddr
	}
	host := uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
	return SockAddr{Host: host, Port: port}
}

// IsNull reports whether the address is unset.
func (a SockAddr) IsNull() bool {
	return a == NullSockAddr
}

func (a SockAddr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d",
		byte(a.Host>>24), byte(a.Host>>16), byte(a.Host>>8), byte(a.Host), a.Port)
}
