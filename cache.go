// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// contentCache is a lazily-populated map from resource name to descriptor
// content. Negative lookups are cached too (miss[name]==true) so a repeated
// GET for an unknown name never re-scans the published set. Fetches for
// distinct names run concurrently; fetches for the same name are
// single-flighted so a slow Content() call only stalls callers asking for
// that one name.
type contentCache struct {
	lck   sync.RWMutex
	group singleflight.Group
	bytes map[string][]byte
	miss  map[string]bool
}

func newContentCache() *contentCache {
	return &contentCache{
		bytes: make(map[string][]byte),
		miss:  make(map[string]bool),
	}
}

// Get returns the content for name, invoking resolve at most once per
// name (even across concurrent callers) to populate the cache. resolve's
// bool result reports whether the lookup found content; a false result is
// cached as a permanent miss until Reset.
func (c *contentCache) Get(name string, resolve func() ([]byte, bool)) ([]byte, bool) {
	c.lck.RLock()
	if body, ok := c.bytes[name]; ok {
		c.lck.RUnlock()
		return body, true
	}
	if c.miss[name] {
		c.lck.RUnlock()
		return nil, false
	}
	c.lck.RUnlock()

	type result struct {
		body []byte
		ok   bool
	}
	v, _, _ := c.group.Do(name, func() (interface{}, error) {
		c.lck.RLock()
		if body, ok := c.bytes[name]; ok {
			c.lck.RUnlock()
			return result{body: body, ok: true}, nil
		}
		if c.miss[name] {
			c.lck.RUnlock()
			return result{}, nil
		}
		c.lck.RUnlock()
		body, ok := resolve()
		c.lck.Lock()
		defer c.lck.Unlock()
		if ok {
			c.bytes[name] = body
		} else {
			c.miss[name] = true
		}
		return result{body: body, ok: ok}, nil
	})
	r := v.(result)
	return r.body, r.ok
}

// Reset clears every cached entry, hit or miss, and drops any in-flight
// single-flight bookkeeping.
func (c *contentCache) Reset() {
	c.lck.Lock()
	defer c.lck.Unlock()
	c.bytes = make(map[string][]byte)
	c.miss = make(map[string]bool)
	c.group = singleflight.Group{}
}
