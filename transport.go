// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"net"
	"sync"

	"github.com/fcavani/e"
	"github.com/fcavani/log"
)

// packetHandler receives one decoded datagram: the address and port it
// came from, and its raw bytes.
type packetHandler func(src *net.UDPAddr, data []byte)

// ifaceSocket pairs one enumerated interface with the two sockets opened
// on it: a multicast receiver joined on that interface, and a sender
// bound to that interface's address (which also receives unicast search
// replies on its ephemeral port). Keeping info and its sockets together
// means a fan-out never has to reconstruct that pairing from separate
// slices that could fall out of alignment.
type ifaceSocket struct {
	info   InterfaceInfo
	mcast  *net.UDPConn
	sender *net.UDPConn
}

// transport owns one multicast receiver and one sender socket per local
// interface, and fans outbound messages across them. It mirrors the
// teacher's SocketWorker pool in server.go: each socket runs its own
// receive goroutine for the lifetime of the transport, and
// server.go:bind's "pass the interface into ListenMulticastUDP" idiom is
// what makes the receiver actually join the group on every interface
// rather than whatever interface the OS defaults to.
type transport struct {
	group   *net.UDPAddr
	sockets []*ifaceSocket
	closed  bool
	lck     sync.Mutex
	wg      sync.WaitGroup
}

// openTransport enumerates local interfaces and, for each, joins the
// multicast group on that interface and opens a sender bound to its
// address, starting a receive loop on both sockets. handle is invoked (on
// the receiving socket's own goroutine) for every datagram read, on every
// socket, including the senders' ephemeral ports (which receive unicast
// search replies). A per-interface socket failure is logged and that
// interface is skipped; openTransport fails only if no interface could
// be wired up at all.
func openTransport(group *net.UDPAddr, handle packetHandler) (*transport, error) {
	ifaces, err := enumerateInterfaces()
	if err != nil {
		return nil, e.Forward(err)
	}
	t := &transport{group: group}
	for _, info := range ifaces {
		mcast, err := net.ListenMulticastUDP("udp4", info.netif, group)
		if err != nil {
			log.Tag("upnp", "transport").Errorf("cannot join multicast group on %v: %v", info.Addr(), err)
			continue
		}
		sender, err := net.ListenUDP("udp4", &net.UDPAddr{IP: info.ip, Port: 0})
		if err != nil {
			log.Tag("upnp", "transport").Errorf("cannot open sender on %v: %v", info.Addr(), err)
			mcast.Close()
			continue
		}
		sock := &ifaceSocket{info: info, mcast: mcast, sender: sender}
		t.sockets = append(t.sockets, sock)
		t.spawnReceiver(mcast, handle)
		t.spawnReceiver(sender, handle)
	}
	if len(t.sockets) == 0 {
		return nil, e.New(ErrNoInterfaces)
	}
	return t, nil
}

func (t *transport) spawnReceiver(conn *net.UDPConn, handle packetHandler) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		buf := make([]byte, 2048)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				t.lck.Lock()
				closed := t.closed
				t.lck.Unlock()
				if closed {
					return
				}
				log.Tag("upnp", "transport").Errorf("receive on %v failed: %v", conn.LocalAddr(), err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			handle(addr, data)
		}
	}()
}

// composeFn builds the wire form of a message for one interface.
type composeFn func(info InterfaceInfo) (string, error)

// send fans msg out over every interface whose InterfaceInfo.Matches(dst)
// is true (always true for multicast destinations), each carrying the
// composed body appropriate to that interface. Per-interface failures
// are logged and don't abort the fan-out.
func (t *transport) send(dst *net.UDPAddr, compose composeFn) {
	t.lck.Lock()
	closed := t.closed
	t.lck.Unlock()
	if closed {
		return
	}
	for _, sock := range t.sockets {
		if !sock.info.Matches(dst.IP) {
			continue
		}
		body, err := compose(sock.info)
		if err != nil {
			log.Tag("upnp", "transport").Errorf("cannot compose message for %v: %v", sock.info.Addr(), err)
			continue
		}
		body += "\r\n"
		_, err = sock.sender.WriteToUDP([]byte(body), dst)
		if err != nil {
			log.Tag("upnp", "transport").Errorf("send from %v to %v failed: %v", sock.info.Addr(), dst, err)
		}
	}
}

// close shuts down every socket and waits for their receive loops to
// exit. Safe to call once; the node guarantees that.
func (t *transport) close() {
	t.lck.Lock()
	t.closed = true
	t.lck.Unlock()
	for _, sock := range t.sockets {
		sock.mcast.Close()
		sock.sender.Close()
	}
	t.wg.Wait()
}
