// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"strconv"
	"strings"
	"time"

	"github.com/fcavani/upnp/location"
)

// sendKind selects which wire form a SsdpMessage is composed as.
type sendKind int

const (
	kindAlive sendKind = iota
	kindByebye
	kindSearch
	kindReply
)

// SsdpMessage is the semantic record behind every SSDP wire message: a
// search, an alive/byebye notification, or a search response.
type SsdpMessage struct {
	UUID     string
	URN      string
	Location location.Descriptor
	TTL      int
}

// All is the wildcard query matching any publishable message
// ("ssdp:all").
var All = SsdpMessage{}

// Publishable reports whether m carries every field required to be
// announced: a uuid, a urn and a location.
func (m SsdpMessage) Publishable() bool {
	return m.UUID != "" && m.URN != "" && m.Location != nil
}

// Matches reports whether m (the candidate) satisfies query: every field
// set on query must equal the corresponding field on m. A query with
// neither field set matches anything.
func (m SsdpMessage) Matches(query SsdpMessage) bool {
	if query.UUID != "" && query.UUID != m.UUID {
		return false
	}
	if query.URN != "" && query.URN != m.URN {
		return false
	}
	return true
}

// usn returns the USN header value for m: "uuid:<uuid>::<urn>".
func (m SsdpMessage) usn() string {
	return "uuid:" + m.UUID + "::" + m.URN
}

// searchMessage composes the M-SEARCH * HTTP/1.1 wire form of m, used as
// the matcher of a scanner's outstanding search.
func (m SsdpMessage) searchMessage(n *Node) string {
	var b strings.Builder
	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	b.WriteString("HOST: " + n.host() + "\r\n")
	b.WriteString("MAN: \"ssdp:discover\"\r\n")
	b.WriteString("MX: " + strconv.Itoa(n.mx) + "\r\n")
	switch {
	case m.UUID != "":
		b.WriteString("ST: uuid:" + m.UUID + "\r\n")
	case m.URN != "":
		b.WriteString("ST: " + m.URN + "\r\n")
	default:
		b.WriteString("ST: ssdp:all\r\n")
	}
	return b.String()
}

// aliveMessage composes the NOTIFY * HTTP/1.1 ssdp:alive wire form of m
// for the given interface.
func (m SsdpMessage) aliveMessage(n *Node, info InterfaceInfo) (string, error) {
	loc, err := m.Location.Location(n, info)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("NOTIFY * HTTP/1.1\r\n")
	b.WriteString("HOST: " + n.host() + "\r\n")
	b.WriteString("SERVER: " + serverName + "\r\n")
	b.WriteString("CACHE-CONTROL: max-age=" + strconv.Itoa(n.ttl) + "\r\n")
	b.WriteString("LOCATION: " + loc + "\r\n")
	b.WriteString("NT: " + m.URN + "\r\n")
	b.WriteString("NTS: ssdp:alive\r\n")
	b.WriteString("USN: " + m.usn() + "\r\n")
	return b.String(), nil
}

// responseMessage composes the HTTP/1.1 * OK response wire form of m for
// the given interface, in reply to a M-SEARCH.
func (m SsdpMessage) responseMessage(n *Node, info InterfaceInfo) (string, error) {
	loc, err := m.Location.Location(n, info)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("HTTP/1.1 * OK\r\n")
	b.WriteString("EXT:\r\n")
	b.WriteString("SERVER: " + serverName + "\r\n")
	b.WriteString("CACHE-CONTROL: max-age=" + strconv.Itoa(n.ttl) + "\r\n")
	b.WriteString("DATE: " + rfc1123GMT(time.Now()) + "\r\n")
	b.WriteString("LOCATION: " + loc + "\r\n")
	b.WriteString("NT: " + m.URN + "\r\n")
	b.WriteString("NTS: ssdp:alive\r\n")
	b.WriteString("USN: " + m.usn() + "\r\n")
	return b.String(), nil
}

// byebyeMessage composes the NOTIFY * HTTP/1.1 ssdp:byebye wire form of m.
func (m SsdpMessage) byebyeMessage(n *Node) string {
	var b strings.Builder
	b.WriteString("NOTIFY * HTTP/1.1\r\n")
	b.WriteString("HOST: " + n.host() + "\r\n")
	b.WriteString("NT: " + m.URN + "\r\n")
	b.WriteString("NTS: ssdp:byebye\r\n")
	b.WriteString("USN: " + m.usn() + "\r\n")
	return b.String()
}

func rfc1123GMT(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// splitLines breaks a raw SSDP datagram into its header lines, the way
// the wire format requires: CRLF or bare LF terminated, blank lines
// dropped.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseMessage parses the header lines of a SSDP message (the first
// method/status line included; it simply won't contain a colon-delimited
// header and is ignored). It returns nil if the lines don't resolve to a
// legal search, alive, response or byebye message.
func parseMessage(lines []string) *SsdpMessage {
	var uuid, urn, descriptionURL, st string
	mx := -1
	maxAge := -1
	for _, line := range lines {
		p := strings.IndexByte(line, ':')
		if p <= 0 {
			continue
		}
		tag := strings.ToLower(strings.TrimSpace(line[:p]))
		value := strings.TrimSpace(line[p+1:])
		switch tag {
		case "location":
			descriptionURL = value
		case "usn":
			uuid, urn = parseUSN(value)
		case "mx":
			if v, err := strconv.Atoi(value); err == nil {
				mx = v
			}
		case "cache-control":
			maxAge = parseMaxAge(value)
		case "st":
			st = value
		}
	}
	switch {
	case uuid != "" && (descriptionURL != "" || maxAge < 0):
		ttl := maxAge
		if mx > 0 {
			ttl = mx
		}
		var loc location.Descriptor
		if descriptionURL != "" {
			loc = location.NewURLFromWire(descriptionURL)
		}
		return &SsdpMessage{UUID: uuid, URN: urn, Location: loc, TTL: ttl}
	case st == "ssdp:all":
		return &SsdpMessage{UUID: uuid, URN: urn, TTL: mx}
	case st != "" && mx > 0:
		return &SsdpMessage{URN: st, TTL: mx}
	default:
		return nil
	}
}

// parseUSN splits a USN header value of the form "uuid:<uuid>::<urn>" (or
// a bare 36-char uuid) into its uuid and urn parts.
func parseUSN(s string) (uuid, urn string) {
	if !strings.HasPrefix(s, "uuid:") {
		return "", ""
	}
	s = s[len("uuid:"):]
	if p := strings.Index(s, "::"); p > 0 {
		return s[:p], s[p+2:]
	}
	if len(s) == 36 {
		return s, ""
	}
	return "", ""
}

// parseMaxAge extracts the integer suffix of "max-age=<n>" leniently,
// returning -1 if it can't be parsed.
func parseMaxAge(s string) int {
	const prefix = "max-age="
	i := strings.Index(s, prefix)
	if i < 0 {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(s[i+len(prefix):]))
	if err != nil {
		return -1
	}
	return v
}
