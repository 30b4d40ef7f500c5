// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

// Package location implements the LocationDescriptor capability: producing
// a name, a URL and a content payload for a published UPnP description.
package location

import (
	"strconv"
	"strings"

	"github.com/fcavani/e"
)

// ErrNoHTTPPort is returned by ResolveLocal when the Resolver has no HTTP
// port configured and a Descriptor with no fixed URL asks to be resolved.
const ErrNoHTTPPort = "cannot obtain location: http not configured"

// InterfaceInfo is the narrow view of a network interface a Descriptor
// needs to build a LOCATION url: just its address.
type InterfaceInfo interface {
	Addr() string
}

// Resolver is the narrow slice of the node a Descriptor needs to build a
// local URL. Passed explicitly so Descriptor implementations never stash a
// back-pointer to the node.
type Resolver interface {
	HTTPPort() int
}

// Descriptor produces a name, a location URL and content bytes for a
// published device or service description.
type Descriptor interface {
	// Name is the path component used when this descriptor is served
	// locally, e.g. "description.xml".
	Name() string
	// Location resolves the absolute URL other nodes should use to fetch
	// this descriptor's content, given the node and the interface the
	// message is being sent on.
	Location(n Resolver, info InterfaceInfo) (string, error)
	// Content returns the descriptor payload.
	Content() ([]byte, error)
}

// ResolveLocal builds the default "http://<iface-ip>:<port>/<name>" URL a
// Descriptor uses unless it carries its own fixed URL. Descriptor
// implementations without a fixed URL delegate to this helper.
func ResolveLocal(n Resolver, info InterfaceInfo, name string) (string, error) {
	if n.HTTPPort() <= 0 {
		return "", e.New(ErrNoHTTPPort)
	}
	return "http://" + info.Addr() + ":" + strconv.Itoa(n.HTTPPort()) + "/" + name, nil
}

// New builds a Descriptor for a name and an opaque content string,
// selecting among the URL, constant and file variants the way the
// original factory does: if content contains "://" and no newline, it's
// treated as a URL; else if it starts with "<?xml" or contains a newline,
// it's treated as inline content; else it's treated as a file resource
// name.
func New(name, content string) Descriptor {
	switch {
	case strings.Contains(content, "://") && !strings.Contains(content, "\n"):
		return NewURL(name, content)
	case strings.HasPrefix(content, "<?xml") || strings.Contains(content, "\n"):
		return NewConstant(name, content)
	default:
		return NewFile(name, content)
	}
}
