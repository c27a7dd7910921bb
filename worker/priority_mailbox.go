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

package worker

import (
	hp "container/heap"
	"sync"
	"sync/atomic"
)

// priorityHeap implements the standard heap.Interface over envelopes,
// ordered by (priority DESC, arrival sequence ASC).
type priorityHeap struct {
	items []*Envelope
}

// enforce compilation error
var _ hp.Interface = (*priorityHeap)(nil)

func (h *priorityHeap) Len() int {
	return len(h.items)
}

func (h *priorityHeap) Push(x any) {
	h.items = append(h.items, x.(*Envelope))
}

func (h *priorityHeap) Less(i, j int) bool {
	left, right := h.items[i], h.items[j]
	if left.task.Priority() != right.task.Priority() {
		return left.task.Priority() > right.task.Priority()
	}
	return left.seq < right.seq
}

// Pop is called after the first element is swapped with the last
// so return the last element and resize the slice
func (h *priorityHeap) Pop() any {
	last := len(h.items) - 1
	element := h.items[last]
	h.items[last] = nil
	h.items = h.items[:last]
	return element
}

func (h *priorityHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

// PriorityMailbox is a lock-protected, unbounded priority mailbox.
//
// It stores envelopes in a binary heap (backed by container/heap) and
// dequeues the highest-priority task first. Each envelope receives an
// arrival sequence number at Enqueue time, and equal-priority envelopes
// are dequeued in arrival order, so the ordering is a strict FIFO
// tie-break: deterministic for a fixed submission order and free of
// starvation reordering within a priority level.
//
// Concurrency model
//   - Multi-producer: many goroutines may Enqueue concurrently.
//   - Single-consumer: only one goroutine should call Dequeue.
//
// Complexity is O(log n) for Enqueue and Dequeue.
type PriorityMailbox struct {
	heap   *priorityHeap
	lock   sync.Mutex
	length int64
	seq    uint64
}

// enforce compilation error
var _ Mailbox = (*PriorityMailbox)(nil)

// NewPriorityMailbox creates an unbounded priority mailbox ordering
// envelopes by task priority (higher first) with FIFO among equals.
func NewPriorityMailbox() *PriorityMailbox {
	h := &priorityHeap{
		items: make([]*Envelope, 0),
	}

	hp.Init(h)

	return &PriorityMailbox{
		heap: h,
	}
}

// Enqueue inserts an envelope into the priority mailbox. The envelope
// is stamped with the next arrival sequence so ties are broken FIFO.
// Non-blocking; always returns nil.
func (q *PriorityMailbox) Enqueue(env *Envelope) error {
	env.seq = atomic.AddUint64(&q.seq, 1)
	q.lock.Lock()
	hp.Push(q.heap, env)
	q.lock.Unlock()
	atomic.AddInt64(&q.length, 1)
	return nil
}

// Dequeue removes and returns the highest-priority envelope; among
// equals, the earliest arrival. Returns nil when the mailbox is empty.
func (q *PriorityMailbox) Dequeue() *Envelope {
	// to avoid overflow
	if q.IsEmpty() {
		return nil
	}
	q.lock.Lock()
	if q.heap.Len() == 0 {
		q.lock.Unlock()
		return nil
	}
	env := hp.Pop(q.heap).(*Envelope)
	q.lock.Unlock()
	atomic.AddInt64(&q.length, -1)
	return env
}

// IsEmpty returns true when the mailbox is empty.
func (q *PriorityMailbox) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the mailbox length.
func (q *PriorityMailbox) Len() int64 {
	return atomic.LoadInt64(&q.length)
}

// Dispose is a no-op for this mailbox.
func (q *PriorityMailbox) Dispose() {}
