// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import "testing"

func TestInterfaceInfoMatchesMulticastAlways(t *testing.T) {
	info := InterfaceInfo{ip: parseIP4("10.0.0.5"), prefix: 24}
	if !info.Matches(parseIP4("239.255.255.250")) {
		t.Fatal("a multicast address must always match")
	}
}

func TestInterfaceInfoMatchesSameSubnet(t *testing.T) {
	info := InterfaceInfo{ip: parseIP4("192.168.1.10"), prefix: 24}
	if !info.Matches(parseIP4("192.168.1.200")) {
		t.Fatal("expected an address in the same /24 to match")
	}
}

func TestInterfaceInfoRejectsOtherSubnet(t *testing.T) {
	info := InterfaceInfo{ip: parseIP4("192.168.1.10"), prefix: 24}
	if info.Matches(parseIP4("192.168.2.10")) {
		t.Fatal("expected an address outside the /24 to be rejected")
	}
}

func TestInterfaceInfoMidBytePrefix(t *testing.T) {
	info := InterfaceInfo{ip: parseIP4("192.168.1.10"), prefix: 22}
	if !info.Matches(parseIP4("192.168.2.200")) {
		t.Fatal("expected 192.168.2.200 inside a /22 rooted at 192.168.1.10 to match")
	}
	if info.Matches(parseIP4("192.168.4.200")) {
		t.Fatal("expected 192.168.4.200 outside that /22 to be rejected")
	}
}

func TestInterfaceInfoAddr(t *testing.T) {
	info := InterfaceInfo{ip: parseIP4("10.1.2.3"), prefix: 16}
	if info.Addr() != "10.1.2.3" {
		t.Fatalf("unexpected Addr: %v", info.Addr())
	}
}
