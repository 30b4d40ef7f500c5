// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package upnp

import (
	"time"
)

// scheduler runs the node's periodic re-announce task and arbitrary
// one-shot delayed callbacks. One-shot tasks are plain time.AfterFunc
// timers; the periodic task is a single goroutine cooperatively stopped
// through a close channel, mirroring the teacher's contexts.go gc loop.
type scheduler struct {
	chclose chan chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{}
}

// after schedules fn to run once, after d. Returns a *time.Timer the
// caller may Stop to cancel it before it fires.
func (s *scheduler) after(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, fn)
}

// startPeriodic runs fn every period, first firing after initialDelay. It
// can be canceled exactly once via stopPeriodic.
func (s *scheduler) startPeriodic(initialDelay, period time.Duration, fn func()) {
	s.chclose = make(chan chan struct{})
	chclose := s.chclose
	go func() {
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				fn()
				timer.Reset(period)
			case ch := <-chclose:
				ch <- struct{}{}
				return
			}
		}
	}()
}

// stopPeriodic cancels the periodic task started by startPeriodic, if
// any, and waits for its goroutine to exit.
func (s *scheduler) stopPeriodic() {
	if s.chclose == nil {
		return
	}
	ch := make(chan struct{})
	s.chclose <- ch
	<-ch
	s.chclose = nil
}
