// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fcavani/e"
	"github.com/fcavani/upnp/location"
)

// startOrSkip starts n, skipping the test (rather than failing it) when
// this host has no multicast-capable interface, mirroring the teacher's
// "may be this is travis.cl" skip in discover_test.go.
func startOrSkip(t *testing.T, n *Node) {
	t.Helper()
	if err := n.Start(); err != nil {
		if e.Equal(err, ErrNoInterfaces) {
			t.Skip("no multicast-capable interface on this host")
		}
		t.Fatal(err)
	}
}

// recordingCallback captures every event a Scanner dispatches, for
// assertions in the scenario tests below.
type recordingCallback struct {
	mu        sync.Mutex
	received  []SsdpMessage
	byebye    []SsdpMessage
	timedOut  []int
	timeoutCh chan struct{}
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{timeoutCh: make(chan struct{}, 8)}
}

func (c *recordingCallback) OnMessageReceived(s *Scanner, from *net.UDPAddr, reply bool, searchID int, msg SsdpMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, msg)
}

func (c *recordingCallback) OnMessageByeBye(s *Scanner, from *net.UDPAddr, msg SsdpMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byebye = append(c.byebye, msg)
}

func (c *recordingCallback) OnSearchTimedOut(s *Scanner, searchID int) {
	c.mu.Lock()
	c.timedOut = append(c.timedOut, searchID)
	c.mu.Unlock()
	c.timeoutCh <- struct{}{}
}

func (c *recordingCallback) count() (received, byebye, timedOut int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received), len(c.byebye), len(c.timedOut)
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// TestTurnaroundPublishAndScan exercises scenario S1: a publisher and a
// scanner in the same process, the scanner receiving a reply whose
// LOCATION resolves over HTTP to the published content.
func TestTurnaroundPublishAndScan(t *testing.T) {
	httpPort := freePort(t)
	urn := DefaultDeviceURN("test", 1)
	uuid := "3f6c1b2e-0000-0000-0000-000000000001"

	publisher := NewNode().SetTTL(20).SetMX(2).SetHTTPPort(httpPort)
	startOrSkip(t, publisher)
	defer publisher.Close()
	publisher.Publish(SsdpMessage{
		UUID:     uuid,
		URN:      urn,
		Location: location.NewConstant("description.xml", "<xml/>"),
	})

	scanner := NewNode().SetMX(2)
	startOrSkip(t, scanner)
	defer scanner.Close()

	cb := newRecordingCallback()
	s := scanner.StartScan(SsdpMessage{URN: urn}, cb)
	defer s.Close()
	s.Search(1)

	deadline := time.After(5 * time.Second)
	for {
		received, _, _ := cb.count()
		if received > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a reply")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cb.mu.Lock()
	msg := cb.received[0]
	cb.mu.Unlock()
	if msg.Location == nil {
		t.Fatal("expected the reply to carry a location")
	}
	loc, err := msg.Location.Location(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(loc, ":"+strconv.Itoa(httpPort)+"/description.xml") {
		t.Fatalf("unexpected location %v", loc)
	}

	resp, err := http.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "<xml/>" {
		t.Fatalf("unexpected body %v", string(body))
	}
}

// TestByeByeOnWithdraw exercises scenario S2: a scanner sees an
// onMessageReceived after Publish and then an onMessageByeBye after
// Withdraw.
func TestByeByeOnWithdraw(t *testing.T) {
	httpPort := freePort(t)
	urn := DefaultDeviceURN("test", 2)
	uuid := "3f6c1b2e-0000-0000-0000-000000000002"
	msg := SsdpMessage{
		UUID:     uuid,
		URN:      urn,
		Location: location.NewConstant("description.xml", "<xml/>"),
	}

	publisher := NewNode().SetTTL(20).SetMX(2).SetHTTPPort(httpPort)
	startOrSkip(t, publisher)
	defer publisher.Close()

	scanner := NewNode().SetMX(2)
	startOrSkip(t, scanner)
	defer scanner.Close()

	cb := newRecordingCallback()
	s := scanner.StartScan(SsdpMessage{URN: urn}, cb)
	defer s.Close()

	publisher.Publish(msg)

	deadline := time.After(5 * time.Second)
	for {
		received, _, _ := cb.count()
		if received > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for alive")
		case <-time.After(50 * time.Millisecond):
		}
	}

	publisher.Withdraw(msg)

	deadline = time.After(5 * time.Second)
	for {
		_, byebye, _ := cb.count()
		if byebye > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for byebye")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// TestDoubleSearchIsNoOp exercises scenario S4: a second Search call while
// one is outstanding is a no-op, and only one timeout fires.
func TestDoubleSearchIsNoOp(t *testing.T) {
	n := NewNode().SetMX(1)
	startOrSkip(t, n)
	defer n.Close()

	cb := newRecordingCallback()
	s := n.StartScan(All, cb)
	defer s.Close()

	if !s.Search(1) {
		t.Fatal("expected the first search to become active")
	}
	if s.Search(2) {
		t.Fatal("expected the second search to be rejected while one is outstanding")
	}

	select {
	case <-cb.timeoutCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first search to time out")
	}

	_, _, timedOut := cb.count()
	if timedOut != 1 {
		t.Fatalf("expected exactly one timeout, got %v", timedOut)
	}
}

// TestHTTPServerCachesMiss exercises scenario S5: an unknown resource
// returns 404, and a repeat request for it doesn't re-scan the published
// set (verified indirectly via the cache's own miss-caching tests; here
// we confirm the status code contract).
func TestHTTPServerCachesMiss(t *testing.T) {
	httpPort := freePort(t)
	n := NewNode().SetHTTPPort(httpPort)
	startOrSkip(t, n)
	defer n.Close()

	url := "http://127.0.0.1:" + strconv.Itoa(httpPort) + "/missing.xml"
	for i := 0; i < 2; i++ {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %v", resp.StatusCode)
		}
	}
}

// TestParseRejectionDropsPacket exercises scenario S6: feeding a NOTIFY
// with no USN and no alive/byebye semantics produces no dispatch.
func TestParseRejectionDropsPacket(t *testing.T) {
	n := NewNode().SetMX(1)
	startOrSkip(t, n)
	defer n.Close()

	cb := newRecordingCallback()
	s := n.StartScan(All, cb)
	defer s.Close()

	n.handlePacket(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1900}, []byte("NOTIFY * HTTP/1.1\r\nHOST: x\r\n\r\n"))

	received, byebye, _ := cb.count()
	if received != 0 || byebye != 0 {
		t.Fatalf("expected no dispatch, got received=%v byebye=%v", received, byebye)
	}
}

// TestStartTwiceIsAnError covers the Configured -> Running -> Closed
// state machine: Start on an already-running node fails.
func TestStartTwiceIsAnError(t *testing.T) {
	n := NewNode()
	startOrSkip(t, n)
	defer n.Close()
	if err := n.Start(); err == nil {
		t.Fatal("expected starting an already-running node to fail")
	}
}

// TestCloseTwiceIsANoOp covers the Running -> Closed transition: Close on
// an already-closed node does nothing and doesn't panic.
func TestCloseTwiceIsANoOp(t *testing.T) {
	n := NewNode()
	startOrSkip(t, n)
	n.Close()
	n.Close()
}

// TestCloseBeforeStartIsANoOp covers the Configured -> Closed transition:
// Close on a node that was never started must not touch the fields Start
// would otherwise have set up.
func TestCloseBeforeStartIsANoOp(t *testing.T) {
	n := NewNode()
	n.Close()
	n.Close()
}

// TestPublishReplacesEquivalentEntry covers PublishedSet's replace-in-place
// semantics: publishing a message equivalent to an existing one replaces
// it rather than appending a duplicate.
func TestPublishReplacesEquivalentEntry(t *testing.T) {
	n := NewNode().SetHTTPPort(freePort(t))
	startOrSkip(t, n)
	defer n.Close()

	uuid := "3f6c1b2e-0000-0000-0000-000000000003"
	urn := DefaultDeviceURN("test", 3)
	n.Publish(SsdpMessage{UUID: uuid, URN: urn, Location: location.NewConstant("a.xml", "a")})
	n.Publish(SsdpMessage{UUID: uuid, URN: urn, Location: location.NewConstant("b.xml", "b")})

	published := n.pub.snapshot()
	if len(published) != 1 {
		t.Fatalf("expected exactly one published entry, got %v", len(published))
	}
	if published[0].Location.Name() != "b.xml" {
		t.Fatalf("expected the replacement entry to win, got %v", published[0].Location.Name())
	}
}

// TestRandomDelayWithinWindow covers invariant 5: delays are clamped to
// [0, min(4500, max(100, mx*1000-500))).
func TestRandomDelayWithinWindow(t *testing.T) {
	n := NewNode()
	cases := []struct {
		mx, maxWait int
	}{
		{mx: 0, maxWait: 100},
		{mx: 1, maxWait: 500},
		{mx: 2, maxWait: 1500},
		{mx: 60, maxWait: 4500},
	}
	for _, c := range cases {
		for i := 0; i < 50; i++ {
			d := n.randomDelay(c.mx)
			if d < 0 || d >= time.Duration(c.maxWait)*time.Millisecond {
				t.Fatalf("mx=%v: delay %v outside [0, %vms)", c.mx, d, c.maxWait)
			}
		}
	}
}
