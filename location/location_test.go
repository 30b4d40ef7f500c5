// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package location

import (
	"testing"

	"github.com/fcavani/e"
)

type fakeResolver int

func (f fakeResolver) HTTPPort() int { return int(f) }

type fakeIface string

func (f fakeIface) Addr() string { return string(f) }

func TestNewSelectsConstantForXML(t *testing.T) {
	d := New("description.xml", "<?xml version=\"1.0\"?><root/>")
	if _, ok := d.(*Constant); !ok {
		t.Fatalf("expected *Constant, got %T", d)
	}
}

func TestNewSelectsURLForURLLike(t *testing.T) {
	d := New("description.xml", "http://10.0.0.5:49999/description.xml")
	if _, ok := d.(*URL); !ok {
		t.Fatalf("expected *URL, got %T", d)
	}
}

func TestNewSelectsFileOtherwise(t *testing.T) {
	d := New("description.xml", "description.xml")
	if _, ok := d.(*File); !ok {
		t.Fatalf("expected *File, got %T", d)
	}
}

func TestConstantContentAndName(t *testing.T) {
	d := NewConstant("description.xml", "<xml/>")
	if d.Name() != "description.xml" {
		t.Fatal("wrong name", d.Name())
	}
	body, err := d.Content()
	if err != nil {
		t.Fatal(e.Trace(e.Forward(err)))
	}
	if string(body) != "<xml/>" {
		t.Fatal("wrong content", string(body))
	}
}

func TestConstantLocationUsesResolver(t *testing.T) {
	d := NewConstant("description.xml", "<xml/>")
	loc, err := d.Location(fakeResolver(49999), fakeIface("192.168.1.10"))
	if err != nil {
		t.Fatal(e.Trace(e.Forward(err)))
	}
	want := "http://192.168.1.10:49999/description.xml"
	if loc != want {
		t.Fatalf("got %v, want %v", loc, want)
	}
}

func TestConstantLocationFailsWithoutHTTPPort(t *testing.T) {
	d := NewConstant("description.xml", "<xml/>")
	_, err := d.Location(fakeResolver(0), fakeIface("192.168.1.10"))
	if !e.Equal(err, ErrNoHTTPPort) {
		t.Fatal("expected ErrNoHTTPPort, got", err)
	}
}

func TestURLFromWireKeepsFixedURL(t *testing.T) {
	d := NewURLFromWire("http://10.0.0.5:49999/description.xml")
	if d.Name() != "description.xml" {
		t.Fatal("wrong derived name", d.Name())
	}
	loc, err := d.Location(fakeResolver(0), fakeIface("ignored"))
	if err != nil {
		t.Fatal(e.Trace(e.Forward(err)))
	}
	if loc != "http://10.0.0.5:49999/description.xml" {
		t.Fatal("wire URL should be returned unchanged", loc)
	}
}
