// MIT License
//
// Copyright (c) 2025-2026 Taskmill Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package ratelimit throttles task admission with a sliding time
// window. Unlike a fixed-bucket limiter there is no discontinuity at
// window boundaries: an admission is allowed only when fewer than limit
// admissions fall within the trailing window at the moment of the call.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow is a sliding-window admission limiter. It keeps the
// timestamps of recent admissions and prunes expired ones lazily on
// each call. Safe for concurrent use.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	clock  func() time.Time
	stamps []time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock sets a custom clock function. Useful for testing.
func WithClock(clock func() time.Time) Option {
	return func(l *SlidingWindow) { l.clock = clock }
}

// New creates a limiter admitting at most limit calls per trailing
// window. A non-positive limit admits nothing; a non-positive window
// admits everything.
func New(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		limit:  limit,
		window: window,
		clock:  time.Now,
		stamps: make([]time.Time, 0, max(limit, 0)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a new admission is permitted now, and records
// it when it is. Expired timestamps are pruned before evaluation.
func (l *SlidingWindow) Allow() bool {
	if l.window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneLocked(now)
	if len(l.stamps) >= l.limit {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Remaining returns how many admissions are left in the current window.
func (l *SlidingWindow) Remaining() int {
	if l.window <= 0 {
		return l.limit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.clock())
	return max(l.limit-len(l.stamps), 0)
}

// Limit returns the configured admission limit.
func (l *SlidingWindow) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *SlidingWindow) Window() time.Duration {
	return l.window
}

// Reset discards all recorded admissions.
func (l *SlidingWindow) Reset() {
	l.mu.Lock()
	l.stamps = l.stamps[:0]
	l.mu.Unlock()
}

// pruneLocked drops timestamps older than the trailing window. Caller
// must hold l.mu.
func (l *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := 0
	for _, stamp := range l.stamps {
		if stamp.After(cutoff) {
			l.stamps[kept] = stamp
			kept++
		}
	}
	l.stamps = l.stamps[:kept]
}
