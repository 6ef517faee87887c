// SPDX-License-Identifier: GPL-2.0-or-later

package net

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/pkg/errors"

	"goquake2/protocol"
)

// Addr identifies a peer. The zero value with Loopback set is the in
// process connection between a local client and server.
type Addr struct {
	Loopback bool
	IP       netip.AddrPort
}

var LoopbackAddr = Addr{Loopback: true}

// UDPAddr unmaps IPv4 in IPv6 addresses so both forms compare equal.
func UDPAddr(a netip.AddrPort) Addr {
	return Addr{IP: netip.AddrPortFrom(a.Addr().Unmap(), a.Port())}
}

func (a Addr) String() string {
	if a.Loopback {
		return "loopback"
	}
	return a.IP.String()
}

// IsLocal reports whether a is the loopback connection or a loopback IP.
func (a Addr) IsLocal() bool {
	return a.Loopback || a.IP.Addr().IsLoopback()
}

// SameBase compares the addresses ignoring the port.
func (a Addr) SameBase(b Addr) bool {
	if a.Loopback || b.Loopback {
		return a.Loopback == b.Loopback
	}
	return a.IP.Addr() == b.IP.Addr()
}

// Port returns the port of an IP address, 0 for loopback.
func (a Addr) Port() int {
	if a.Loopback {
		return 0
	}
	return int(a.IP.Port())
}

// ParseAddr resolves "localhost", "host" or "host:port". Without a port
// defaultPort is used.
func ParseAddr(s string, defaultPort int) (Addr, error) {
	if s == "localhost" || s == "loopback" {
		return LoopbackAddr, nil
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host, port = s, strconv.Itoa(defaultPort)
	}
	ua, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return Addr{}, errors.Wrapf(err, "bad address %q", s)
	}
	return UDPAddr(ua.AddrPort()), nil
}

// ServerAddr is ParseAddr with the default server port.
func ServerAddr(s string) (Addr, error) {
	return ParseAddr(s, protocol.PortServer)
}
