// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

// Package upnp implements a UPnP 1.0 discovery and description node: SSDP
// multicast publishing and scanning, plus the minimal HTTP server needed
// to serve the descriptions a publisher advertises.
//
//	n := upnp.NewNode().SetHTTPPort(49999).SetTTL(20).SetMX(2)
//	if err := n.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer n.Close()
//	n.Publish(upnp.SsdpMessage{
//		UUID:     "3f6c1b2e-...",
//		URN:      upnp.DefaultDeviceURN("test", 1),
//		Location: location.NewConstant("description.xml", "<xml/>"),
//	})
package upnp

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fcavani/e"
	"github.com/fcavani/log"
)

// serverName identifies this implementation and its protocol version in
// SERVER headers, following the teacher-lineage's
// "java/1.8 UPnP/1.0 jlibupnp/1.0" three-token shape.
var serverName = "go/" + runtime.Version() + " UPnP/1.0 fcavani-upnp/1.0"

// RootDevice is the well-known search target matching any UPnP root
// device.
func RootDevice() string {
	return "upnp:rootdevice"
}

// DefaultDeviceURN formats the canonical device URN for name and version:
// "urn:schemas-upnp-org:device:<name>:<version>".
func DefaultDeviceURN(name string, version int) string {
	return "urn:schemas-upnp-org:device:" + name + ":" + strconv.Itoa(version)
}

type nodeState int

const (
	stateConfigured nodeState = iota
	stateRunning
	stateClosed
)

// ErrAlreadyRunning is returned by Start when called on a node that is
// already running.
const ErrAlreadyRunning = "node already started"

// Node is the composition root: SSDP transport, publisher, scanner,
// content cache and description server, plus the fluent configuration
// used before Start.
type Node struct {
	mcastIP   net.IP
	mcastPort int
	httpPort  int
	ttl       int
	mx        int
	byebye    bool

	lck   sync.Mutex
	state nodeState

	pub   *publisherCore
	scan  *scannerCore
	cache *contentCache
	http  *httpServer
	tr    *transport
	sched *scheduler

	rngLck sync.Mutex
	rng    *mathrand.Rand
}

// NewNode creates a node configured for the default multicast address
// (239.255.255.250) and port (1900). Configure it further with the
// Set* fluent methods before calling Start.
func NewNode() *Node {
	return &Node{
		mcastIP:   net.IPv4(239, 255, 255, 250),
		mcastPort: 1900,
		httpPort:  -1,
		ttl:       300,
		mx:        5,
		byebye:    true,
		rng:       mathrand.New(mathrand.NewSource(cryptoSeed())),
	}
}

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.BigEndian.Uint64(buf[:]))
}

// SetMulticastAddr configures the multicast group address this node
// listens at and announces to. Must be called before Start.
func (n *Node) SetMulticastAddr(addr string) *Node {
	if ip := net.ParseIP(addr); ip != nil {
		n.mcastIP = ip
	}
	return n
}

// SetMulticastPort configures the multicast port. Must be called before
// Start.
func (n *Node) SetMulticastPort(port int) *Node {
	n.mcastPort = port
	return n
}

// SetHTTPPort configures the port the description server listens on. If
// never called (or called with a non-positive value), no description
// server is started and local descriptors with no fixed URL can't be
// resolved.
func (n *Node) SetHTTPPort(port int) *Node {
	n.httpPort = port
	return n
}

// HTTPPort returns the configured description server port, or a
// non-positive value if none is configured. Implements
// location.Resolver.
func (n *Node) HTTPPort() int {
	return n.httpPort
}

// SetTTL configures the cache-control lifetime (seconds) advertised on
// published messages. Default 300.
func (n *Node) SetTTL(ttl int) *Node {
	n.ttl = ttl
	return n
}

// SetMX configures the maximum response delay (seconds) advertised on
// searches this node issues. Default 5.
func (n *Node) SetMX(mx int) *Node {
	n.mx = mx
	return n
}

// SayByeByeOnClose configures whether Close announces a byebye for every
// currently published message. Default true.
func (n *Node) SayByeByeOnClose(v bool) *Node {
	n.byebye = v
	return n
}

func (n *Node) host() string {
	return n.mcastIP.String() + ":" + strconv.Itoa(n.mcastPort)
}

func (n *Node) groupAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: n.mcastIP, Port: n.mcastPort}
}

// randomDelay returns a random duration uniformly sampled in [0, waitMs)
// milliseconds, clamped to the UPnP-recommended response spread window.
func (n *Node) randomDelay(mxSeconds int) time.Duration {
	wait := mxSeconds*1000 - 500
	if wait < 100 {
		wait = 100
	}
	if wait > 4500 {
		wait = 4500
	}
	n.rngLck.Lock()
	ms := n.rng.Intn(wait)
	n.rngLck.Unlock()
	return time.Duration(ms) * time.Millisecond
}

// Start enumerates network interfaces, opens the multicast transport,
// starts the description server if configured, and begins periodic
// re-announcement of published messages. Start on an already-running
// node is an error.
func (n *Node) Start() error {
	n.lck.Lock()
	defer n.lck.Unlock()
	if n.state == stateRunning {
		return e.New(ErrAlreadyRunning)
	}
	n.pub = newPublisherCore(n)
	n.scan = newScannerCore(n)
	n.cache = newContentCache()
	n.sched = newScheduler()

	if n.httpPort > 0 {
		n.http = newHTTPServer(n)
		if err := n.http.start(); err != nil {
			return e.Push(err, "cannot start description server")
		}
	}

	tr, err := openTransport(n.groupAddr(), n.handlePacket)
	if err != nil {
		if n.http != nil {
			n.http.close()
			n.http = nil
		}
		return e.Forward(err)
	}
	n.tr = tr

	n.sched.startPeriodic(time.Second, time.Duration(float64(n.ttl)*0.333*float64(time.Second)), func() {
		n.pub.announceAll()
	})

	n.state = stateRunning
	return nil
}

// Close stops the description server, cancels periodic re-announcement,
// optionally announces byebye for every published message, and tears
// down every transport socket. Close on an already-closed node, or on
// one that was never started, is a no-op.
func (n *Node) Close() {
	n.lck.Lock()
	defer n.lck.Unlock()
	if n.state != stateRunning {
		n.state = stateClosed
		return
	}
	if n.http != nil {
		n.http.close()
	}
	if n.sched != nil {
		n.sched.stopPeriodic()
	}
	if n.byebye && n.pub != nil {
		n.pub.byebyeAll()
		time.Sleep(100 * time.Millisecond)
	}
	if n.tr != nil {
		n.tr.close()
	}
	n.state = stateClosed
}

// Publish announces each publishable message in msgs: it's inserted into
// (or replaces an equivalent entry in) the published set and an alive
// NOTIFY is sent immediately, in addition to the periodic announcement.
// Non-publishable messages are silently skipped.
func (n *Node) Publish(msgs ...SsdpMessage) *Node {
	for _, m := range msgs {
		if m.Publishable() {
			n.pub.publish(m)
		}
	}
	return n
}

// Withdraw removes from the published set each entry equivalent to an
// entry of msgs (same uuid and urn, matching in both directions), sending
// one byebye NOTIFY per removed entry.
func (n *Node) Withdraw(msgs ...SsdpMessage) *Node {
	for _, m := range msgs {
		n.pub.withdraw(m)
	}
	return n
}

// StartScan registers a scanner checking incoming messages against
// matcher and delivering matches to callback.
func (n *Node) StartScan(matcher SsdpMessage, callback Callback) *Scanner {
	return n.scan.startScan(matcher, callback)
}

// Reset clears the description content cache, forcing the next request
// for any resource to re-resolve it from the published set.
func (n *Node) Reset() {
	n.cache.Reset()
}

func (n *Node) handlePacket(src *net.UDPAddr, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Tag("upnp", "node").Errorf("panic handling packet from %v: %v", src, r)
		}
	}()
	s := string(data)
	switch {
	case strings.HasPrefix(s, "M-SEARCH"):
		n.pub.handleSearch(src, s)
	case strings.HasPrefix(s, "NOTIFY"):
		n.scan.handleNotify(src, s)
	case strings.HasPrefix(s, "HTTP/1.1"):
		n.scan.handleResponse(src, s)
	}
}
