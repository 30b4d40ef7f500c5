// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package location

import (
	"io"
	"net/http"
	"strings"

	"github.com/fcavani/e"
)

// URL is a Descriptor resolving its content via an external URL. Used by
// scanners for a message received over the wire (LOCATION header), and by
// publishers that want to advertise an external description instead of
// one served locally.
//
// If name is empty, Location returns the fixed URL unchanged and the name
// is derived from the URL's last path segment. If a name is given,
// Location instead resolves to the node's own HTTP server, and only
// Content uses the fixed URL — this lets a server publish a file by URL
// while still serving it itself under a local name.
type URL struct {
	name string
	url  string
}

// NewURL builds a Descriptor wrapping a fixed URL with an explicit name.
func NewURL(name, url string) *URL {
	return &URL{name: name, url: url}
}

// NewURLFromWire builds a Descriptor for a LOCATION header value received
// over the wire, with no explicit name.
func NewURLFromWire(url string) *URL {
	return &URL{url: url}
}

func (u *URL) Name() string {
	if u.name != "" {
		return u.name
	}
	if i := strings.LastIndexByte(u.url, '/'); i >= 0 {
		return u.url[i+1:]
	}
	return u.url
}

func (u *URL) Location(n Resolver, info InterfaceInfo) (string, error) {
	if u.name == "" {
		return u.url, nil
	}
	return ResolveLocal(n, info, u.name)
}

func (u *URL) Content() ([]byte, error) {
	resp, err := http.Get(u.url)
	if err != nil {
		return nil, e.Push(err, "cannot fetch location url "+u.url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, e.New("location url %v returned status %v", u.url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.Push(err, "cannot read location url body")
	}
	return body, nil
}
