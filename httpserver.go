// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fcavani/e"
	"github.com/fcavani/log"
)

// httpServer is the minimal HTTP/1.1 description responder required by
// §4.4: one resource per connection, connection: close, 200 or 404, no
// keep-alive, no chunked encoding. It exists solely so LOCATION URLs in
// alive/response messages resolve.
type httpServer struct {
	node *Node

	lck    sync.Mutex
	ln     net.Listener
	closed bool
	wg     sync.WaitGroup
}

func newHTTPServer(n *Node) *httpServer {
	return &httpServer{node: n}
}

func (h *httpServer) start() error {
	ln, err := net.Listen("tcp4", ":"+strconv.Itoa(h.node.httpPort))
	if err != nil {
		return e.Push(err, "cannot listen on http port")
	}
	h.ln = ln
	h.wg.Add(1)
	go h.acceptLoop()
	return nil
}

func (h *httpServer) acceptLoop() {
	defer h.wg.Done()
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			h.lck.Lock()
			closed := h.closed
			h.lck.Unlock()
			if closed {
				return
			}
			log.Tag("upnp", "http").Errorf("accept failed: %v", err)
			continue
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.handle(conn)
		}()
	}
}

func (h *httpServer) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(time.Second))

	reader := bufio.NewReader(conn)
	var resource string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "GET ") && strings.HasSuffix(line, "HTTP/1.1") {
			resource = strings.TrimSpace(line[len("GET ") : len(line)-len("HTTP/1.1")])
		}
	}
	resource = strings.TrimLeft(resource, "/")
	if resource == "" {
		h.respondMissing(conn)
		return
	}
	body, ok := h.node.cache.Get(resource, func() ([]byte, bool) {
		return h.resolve(resource)
	})
	if !ok {
		h.respondMissing(conn)
		return
	}
	h.respondOK(conn, body)
}

// resolve scans the published set for a LocationDescriptor whose Name()
// matches resource, fetching its Content on first request.
func (h *httpServer) resolve(resource string) ([]byte, bool) {
	for _, m := range h.node.pub.snapshot() {
		if m.Location == nil || m.Location.Name() != resource {
			continue
		}
		body, err := m.Location.Content()
		if err != nil {
			log.Tag("upnp", "http").Errorf("cannot resolve %v: %v", resource, err)
			return nil, false
		}
		return body, true
	}
	return nil, false
}

func (h *httpServer) respondOK(conn net.Conn, body []byte) {
	header := "HTTP/1.1 200 OK\r\n" +
		"connection: close\r\n" +
		"content-type: text/xml\r\n" +
		"content-length: " + strconv.Itoa(len(body)) + "\r\n\r\n"
	conn.Write([]byte(header))
	conn.Write(body)
}

func (h *httpServer) respondMissing(conn net.Conn) {
	conn.Write([]byte("HTTP/1.1 404 NOT FOUND\r\n" +
		"connection: close\r\n" +
		"content-length: 0\r\n\r\n"))
}

func (h *httpServer) close() {
	h.lck.Lock()
	if h.closed {
		h.lck.Unlock()
		return
	}
	h.closed = true
	h.lck.Unlock()
	if h.ln != nil {
		h.ln.Close()
	}
	h.wg.Wait()
}
