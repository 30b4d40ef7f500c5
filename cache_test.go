// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheGetCachesHit(t *testing.T) {
	c := newContentCache()
	var calls int32
	resolve := func() ([]byte, bool) {
		atomic.AddInt32(&calls, 1)
		return []byte("<xml/>"), true
	}
	body, ok := c.Get("description.xml", resolve)
	if !ok || string(body) != "<xml/>" {
		t.Fatalf("unexpected first result: %v %v", body, ok)
	}
	body, ok = c.Get("description.xml", resolve)
	if !ok || string(body) != "<xml/>" {
		t.Fatalf("unexpected second result: %v %v", body, ok)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected resolve called once, got %v", calls)
	}
}

func TestCacheGetCachesMiss(t *testing.T) {
	c := newContentCache()
	var calls int32
	resolve := func() ([]byte, bool) {
		atomic.AddInt32(&calls, 1)
		return nil, false
	}
	if _, ok := c.Get("missing.xml", resolve); ok {
		t.Fatal("expected a miss")
	}
	if _, ok := c.Get("missing.xml", resolve); ok {
		t.Fatal("expected a cached miss")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected resolve called once for a cached miss, got %v", calls)
	}
}

func TestCacheGetDoesNotMistakeEmptyBodyForMiss(t *testing.T) {
	c := newContentCache()
	body, ok := c.Get("empty.xml", func() ([]byte, bool) {
		return []byte{}, true
	})
	if !ok {
		t.Fatal("an empty but valid body must not be treated as a miss")
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %v", body)
	}
}

func TestCacheGetSingleFlightsConcurrentCallers(t *testing.T) {
	c := newContentCache()
	var calls int32
	release := make(chan struct{})
	resolve := func() ([]byte, bool) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("body"), true
	}
	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			body, ok := c.Get("shared.xml", resolve)
			if !ok || string(body) != "body" {
				t.Errorf("unexpected result: %v %v", body, ok)
			}
		}()
	}
	close(release)
	wg.Wait()
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single resolve call across %v callers, got %v", n, calls)
	}
}

func TestCacheResetClearsHitsAndMisses(t *testing.T) {
	c := newContentCache()
	c.Get("hit.xml", func() ([]byte, bool) { return []byte("x"), true })
	c.Get("miss.xml", func() ([]byte, bool) { return nil, false })
	c.Reset()
	var calls int32
	c.Get("hit.xml", func() ([]byte, bool) {
		atomic.AddInt32(&calls, 1)
		return []byte("x"), true
	})
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatal("expected Reset to force re-resolution")
	}
}
