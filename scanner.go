// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"net"
	"sync"
	"time"
)

// Callback receives the events a Scanner dispatches: messages matching
// its search criterion, byebye notifications, and search timeouts.
// Implementations run on the transport's receive goroutines and must not
// block indefinitely.
type Callback interface {
	// OnMessageReceived is called for every alive NOTIFY or search
	// response matching the scanner's matcher. reply is true for a
	// search response, false for an unsolicited alive NOTIFY. searchID
	// is the scanner's currently outstanding search id, or -1 if none.
	OnMessageReceived(scanner *Scanner, from *net.UDPAddr, reply bool, searchID int, msg SsdpMessage)
	// OnMessageByeBye is called for every byebye NOTIFY matching the
	// scanner's matcher.
	OnMessageByeBye(scanner *Scanner, from *net.UDPAddr, msg SsdpMessage)
	// OnSearchTimedOut is called exactly once per search that a Search
	// call started, after the node's MX seconds have elapsed, whether or
	// not any reply arrived. A Search call made while a search is already
	// outstanding starts none and adds no timeout.
	OnSearchTimedOut(scanner *Scanner, searchID int)
}

// NopCallback implements Callback with no-op methods. Embed it to
// implement only the events a particular Callback cares about.
type NopCallback struct{}

func (NopCallback) OnMessageReceived(*Scanner, *net.UDPAddr, bool, int, SsdpMessage) {}
func (NopCallback) OnMessageByeBye(*Scanner, *net.UDPAddr, SsdpMessage)              {}
func (NopCallback) OnSearchTimedOut(*Scanner, int)                                  {}

// Scanner is an active search registration: a matcher filtering inbound
// messages, a callback to dispatch them to, and the lifecycle of at most
// one outstanding search at a time.
type Scanner struct {
	node     *Node
	matcher  SsdpMessage
	callback Callback

	lck             sync.Mutex
	currentSearchID int
}

// Matcher returns the search message this scanner filters inbound
// messages against.
func (s *Scanner) Matcher() SsdpMessage {
	return s.matcher
}

// Search issues a M-SEARCH built from the scanner's matcher if no search
// is currently outstanding, and schedules a timeout after the node's MX
// seconds. It returns true iff searchID is now the scanner's active
// search id — false if a different search was already outstanding.
func (s *Scanner) Search(searchID int) bool {
	s.lck.Lock()
	defer s.lck.Unlock()
	if s.currentSearchID < 0 {
		s.currentSearchID = searchID
		body := s.matcher.searchMessage(s.node)
		s.node.tr.send(s.node.groupAddr(), func(InterfaceInfo) (string, error) {
			return body, nil
		})
		s.node.sched.after(time.Duration(s.node.mx)*time.Second, s.timedOut)
	}
	return s.currentSearchID == searchID
}

func (s *Scanner) timedOut() {
	s.lck.Lock()
	id := s.currentSearchID
	s.currentSearchID = -1
	s.lck.Unlock()
	s.callback.OnSearchTimedOut(s, id)
}

func (s *Scanner) activeSearchID() int {
	s.lck.Lock()
	defer s.lck.Unlock()
	return s.currentSearchID
}

// Close unregisters this scanner; no further OnMessageReceived or
// OnMessageByeBye callbacks are dispatched to it. A search still
// outstanding at Close reports its OnSearchTimedOut when its timer fires.
func (s *Scanner) Close() {
	s.node.scan.remove(s)
}

// scannerCore holds every active Scanner and routes inbound NOTIFY and
// search-response datagrams to the ones whose matcher matches.
type scannerCore struct {
	node *Node

	lck      sync.RWMutex
	scanners []*Scanner
}

func newScannerCore(n *Node) *scannerCore {
	return &scannerCore{node: n}
}

func (c *scannerCore) startScan(matcher SsdpMessage, callback Callback) *Scanner {
	s := &Scanner{node: c.node, matcher: matcher, callback: callback, currentSearchID: -1}
	c.lck.Lock()
	c.scanners = append(c.scanners, s)
	c.lck.Unlock()
	return s
}

func (c *scannerCore) remove(s *Scanner) {
	c.lck.Lock()
	defer c.lck.Unlock()
	for i, existing := range c.scanners {
		if existing == s {
			c.scanners = append(c.scanners[:i], c.scanners[i+1:]...)
			return
		}
	}
}

func (c *scannerCore) snapshot() []*Scanner {
	c.lck.RLock()
	defer c.lck.RUnlock()
	out := make([]*Scanner, len(c.scanners))
	copy(out, c.scanners)
	return out
}

// handleNotify routes a parsed NOTIFY datagram (alive or byebye) to every
// scanner whose matcher matches it.
func (c *scannerCore) handleNotify(src *net.UDPAddr, raw string) {
	scanners := c.snapshot()
	if len(scanners) == 0 {
		return
	}
	msg := parseMessage(splitLines(raw))
	if msg == nil {
		return
	}
	for _, s := range scanners {
		if !msg.Matches(s.matcher) {
			continue
		}
		if msg.Location == nil {
			s.callback.OnMessageByeBye(s, src, *msg)
		} else {
			s.callback.OnMessageReceived(s, src, false, s.activeSearchID(), *msg)
		}
	}
}

// handleResponse routes a parsed search-response datagram to every
// scanner whose matcher matches it.
func (c *scannerCore) handleResponse(src *net.UDPAddr, raw string) {
	scanners := c.snapshot()
	if len(scanners) == 0 {
		return
	}
	msg := parseMessage(splitLines(raw))
	if msg == nil {
		return
	}
	for _, s := range scanners {
		if !msg.Matches(s.matcher) {
			continue
		}
		s.callback.OnMessageReceived(s, src, true, s.activeSearchID(), *msg)
	}
}
