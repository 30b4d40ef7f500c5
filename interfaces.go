// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"net"

	"github.com/fcavani/e"
)

// mask holds the precomputed bit masks for the mid-byte case of CIDR
// containment: mask[n] is the top n bits of a byte set.
var mask = [9]byte{0x00, 0x80, 0xc0, 0xe0, 0xf0, 0xf8, 0xfc, 0xfe, 0xff}

// InterfaceInfo describes one IPv4 address bound to a local network
// interface, together with its subnet prefix length.
type InterfaceInfo struct {
	ip     net.IP
	prefix int
	netif  *net.Interface
}

// Addr returns the dotted-decimal IPv4 address of this interface.
func (i InterfaceInfo) Addr() string {
	return i.ip.String()
}

// Matches reports whether addr is reachable through this interface: it is
// a multicast address, or it lies in the interface's subnet.
func (i InterfaceInfo) Matches(addr net.IP) bool {
	if addr.IsMulticast() {
		return true
	}
	other := addr.To4()
	self := i.ip.To4()
	if other == nil || self == nil || len(other) != len(self) {
		return false
	}
	firstNonMatch := 0
	for firstNonMatch < len(self) && other[firstNonMatch] == self[firstNonMatch] {
		firstNonMatch++
	}
	if firstNonMatch == len(self) {
		return true
	}
	switch {
	case 8*firstNonMatch+8 < i.prefix:
		return false
	case 8*firstNonMatch >= i.prefix:
		return true
	default:
		m := mask[i.prefix-8*firstNonMatch]
		return m&other[firstNonMatch] == m&self[firstNonMatch]
	}
}

// ErrNoInterfaces is returned when no non-loopback, multicast-capable IPv4
// interface could be found on this host.
const ErrNoInterfaces = "no multicast-capable ipv4 interface"

// enumerateInterfaces returns one InterfaceInfo per IPv4 address bound to
// a non-loopback, multicast-capable network interface, in OS enumeration
// order.
func enumerateInterfaces() ([]InterfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, e.New(err)
	}
	var infos []InterfaceInfo
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback == net.FlagLoopback {
			continue
		}
		if iface.Flags&net.FlagMulticast != net.FlagMulticast {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		netif := iface
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			prefix, _ := ipnet.Mask.Size()
			infos = append(infos, InterfaceInfo{ip: ip4, prefix: prefix, netif: &netif})
		}
	}
	if len(infos) == 0 {
		return nil, e.New(ErrNoInterfaces)
	}
	return infos, nil
}
