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

package queue

import "sync"

// minCapacity is the smallest capacity the ring buffer may have.
// Must be a power of 2 so the modulus can be computed with a bitmask.
const minCapacity = 16

// Queue is a thread-safe unbounded FIFO queue backed by a resizable
// ring buffer. Consumers can block on Wait until an item arrives or
// the queue is closed.
type Queue[T any] struct {
	mu     sync.RWMutex
	cond   *sync.Cond
	nodes  []*T
	head   int
	tail   int
	count  int
	closed bool
}

// New creates an empty Queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		nodes: make([]*T, minCapacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds an item to the back of the queue. It is safe for
// concurrent use. It returns false when the queue is closed, in which
// case the item is dropped.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.count == len(q.nodes) {
		q.resize()
	}
	q.nodes[q.tail] = &item
	q.tail = (q.tail + 1) & (len(q.nodes) - 1)
	q.count++
	q.cond.Signal()
	q.mu.Unlock()
	return true
}

// Pop removes the item at the front of the queue. It returns false
// when the queue is empty or closed.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Wait blocks until an item is available or the queue is closed.
// When the queue already holds items the first one is returned
// immediately.
func (q *Queue[T]) Wait() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.popLocked()
}

// Close closes the queue and discards all pending entries. All
// goroutines blocked in Wait return.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.count = 0
	q.head = 0
	q.tail = 0
	q.nodes = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}

// IsClosed returns true when the queue has been closed. Only a true
// return value has a definite meaning under concurrency.
func (q *Queue[T]) IsClosed() bool {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	return closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	count := q.count
	q.mu.RUnlock()
	return count
}

// IsEmpty returns true when the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue[T]) popLocked() (T, bool) {
	if q.count == 0 || q.closed {
		var zero T
		return zero, false
	}
	item := q.nodes[q.head]
	q.nodes[q.head] = nil
	q.head = (q.head + 1) & (len(q.nodes) - 1)
	q.count--
	// shrink when the buffer is only a quarter full
	if len(q.nodes) > minCapacity && (q.count<<2) == len(q.nodes) {
		q.resize()
	}
	return *item, true
}

func (q *Queue[T]) resize() {
	nodes := make([]*T, max(q.count<<1, minCapacity))
	if q.tail > q.head {
		copy(nodes, q.nodes[q.head:q.tail])
	} else {
		n := copy(nodes, q.nodes[q.head:])
		copy(nodes[n:], q.nodes[:q.tail])
	}
	q.tail = q.count
	q.head = 0
	q.nodes = nodes
}
