// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"net"
	"sync"
)

// publisherCore holds the set of messages this node publishes and
// answers M-SEARCH queries and periodic re-announcement against it.
type publisherCore struct {
	node *Node

	lck       sync.RWMutex
	published []SsdpMessage
}

func newPublisherCore(n *Node) *publisherCore {
	return &publisherCore{node: n}
}

// equivalent reports whether a and b name the same published entry:
// matching in both directions, since a fully-specified publishable
// message always has both uuid and urn set.
func equivalent(a, b SsdpMessage) bool {
	return a.Matches(b) && b.Matches(a)
}

// publish inserts msg into the published set, replacing an equivalent
// entry in place if one exists, and immediately multicasts an alive
// NOTIFY for it.
func (p *publisherCore) publish(msg SsdpMessage) {
	p.lck.Lock()
	replaced := false
	for i, existing := range p.published {
		if equivalent(existing, msg) {
			p.published[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		p.published = append(p.published, msg)
	}
	p.lck.Unlock()
	p.alive(msg)
}

// withdraw removes every entry equivalent to msg (see equivalent) from the
// published set, sending one byebye NOTIFY per removed entry.
func (p *publisherCore) withdraw(msg SsdpMessage) {
	p.lck.Lock()
	var removed []SsdpMessage
	kept := p.published[:0:0]
	for _, existing := range p.published {
		if equivalent(existing, msg) {
			removed = append(removed, existing)
		} else {
			kept = append(kept, existing)
		}
	}
	p.published = kept
	p.lck.Unlock()
	for _, m := range removed {
		p.byebye(m)
	}
}

// snapshot returns a copy of the published set, safe to iterate without
// holding the lock.
func (p *publisherCore) snapshot() []SsdpMessage {
	p.lck.RLock()
	defer p.lck.RUnlock()
	out := make([]SsdpMessage, len(p.published))
	copy(out, p.published)
	return out
}

func (p *publisherCore) alive(msg SsdpMessage) {
	p.node.tr.send(p.node.groupAddr(), func(info InterfaceInfo) (string, error) {
		return msg.aliveMessage(p.node, info)
	})
}

func (p *publisherCore) byebye(msg SsdpMessage) {
	body := msg.byebyeMessage(p.node)
	p.node.tr.send(p.node.groupAddr(), func(InterfaceInfo) (string, error) {
		return body, nil
	})
}

// announceAll sends an alive NOTIFY for every published message. Called
// by the node's periodic scheduler.
func (p *publisherCore) announceAll() {
	for _, m := range p.snapshot() {
		p.alive(m)
	}
}

// byebyeAll sends a byebye NOTIFY for every published message. Called
// from Node.Close when sayByeByeOnClose is set.
func (p *publisherCore) byebyeAll() {
	for _, m := range p.snapshot() {
		p.byebye(m)
	}
}

// handleSearch parses an incoming M-SEARCH datagram and, for every
// published message matching it, schedules a unicast reply after a
// random delay within the MX response window.
func (p *publisherCore) handleSearch(src *net.UDPAddr, raw string) {
	published := p.snapshot()
	if len(published) == 0 {
		return
	}
	query := parseMessage(splitLines(raw))
	if query == nil {
		return
	}
	for _, m := range published {
		if !m.Matches(*query) {
			continue
		}
		msg := m
		delay := p.node.randomDelay(query.TTL)
		p.node.sched.after(delay, func() {
			p.node.tr.send(src, func(info InterfaceInfo) (string, error) {
				return msg.responseMessage(p.node, info)
			})
		})
	}
}
