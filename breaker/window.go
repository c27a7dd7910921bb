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

package breaker

import (
	"sync"
	"time"
)

// cell accumulates outcome counts for one slice of the window.
type cell struct {
	succ uint64
	fail uint64
}

// rollingWindow tracks success and failure counts over a fixed time
// window split into equal cells. The cursor moves forward as time
// advances and recycled cells drop their counts, so outcomes older
// than the window stop contributing to the totals.
type rollingWindow struct {
	cellDur     time.Duration
	clock       func() time.Time
	windowNanos int64

	mu          sync.Mutex
	cells       []cell
	cursor      int
	lastAdvance int64 // unix nano of the last cursor move
}

func newRollingWindow(window time.Duration, n int, clock func() time.Time) *rollingWindow {
	if n < 1 {
		n = 1
	}
	cellDur := window / time.Duration(n)
	if cellDur <= 0 {
		cellDur = time.Nanosecond
	}
	return &rollingWindow{
		cellDur:     cellDur,
		clock:       clock,
		windowNanos: window.Nanoseconds(),
		cells:       make([]cell, n),
		lastAdvance: clock().UnixNano(),
	}
}

// record adds one outcome to the current cell.
func (rw *rollingWindow) record(success bool) {
	rw.mu.Lock()
	rw.advanceLocked(rw.clock().UnixNano())
	if success {
		rw.cells[rw.cursor].succ++
	} else {
		rw.cells[rw.cursor].fail++
	}
	rw.mu.Unlock()
}

// totals returns the success and failure counts currently in view.
func (rw *rollingWindow) totals() (succ, fail uint64) {
	rw.mu.Lock()
	rw.advanceLocked(rw.clock().UnixNano())
	for _, c := range rw.cells {
		succ += c.succ
		fail += c.fail
	}
	rw.mu.Unlock()
	return succ, fail
}

// reset clears every cell, restarting the window at the current time.
func (rw *rollingWindow) reset() {
	rw.mu.Lock()
	rw.resetLocked(rw.clock().UnixNano())
	rw.mu.Unlock()
}

// bounds reports the time span the current totals cover.
func (rw *rollingWindow) bounds() (start, end time.Time) {
	rw.mu.Lock()
	now := rw.clock()
	rw.advanceLocked(now.UnixNano())
	rw.mu.Unlock()
	return now.Add(-rw.cellDur * time.Duration(len(rw.cells))), now
}

// advanceLocked recycles the cells the elapsed time has moved past.
func (rw *rollingWindow) advanceLocked(now int64) {
	elapsed := now - rw.lastAdvance
	if elapsed < rw.cellDur.Nanoseconds() {
		return
	}
	if elapsed >= rw.windowNanos {
		rw.resetLocked(now)
		return
	}
	steps := min(int(elapsed/rw.cellDur.Nanoseconds()), len(rw.cells)-1)
	for i := 0; i < steps; i++ {
		rw.cursor = (rw.cursor + 1) % len(rw.cells)
		rw.cells[rw.cursor] = cell{}
	}
	rw.lastAdvance = now
}

func (rw *rollingWindow) resetLocked(now int64) {
	for i := range rw.cells {
		rw.cells[i] = cell{}
	}
	rw.cursor = 0
	rw.lastAdvance = now
}
