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
	"github.com/taskmill/taskmill/future"
	"github.com/taskmill/taskmill/task"
)

// Envelope pairs a task with the completable handle its submitter is
// awaiting. Mailboxes carry envelopes; the worker completes them.
type Envelope struct {
	task       *task.Task
	completion future.Completable

	// seq is the arrival sequence assigned by the mailbox; it breaks
	// priority ties so that equal-priority tasks keep FIFO order.
	seq uint64
}

// NewEnvelope wraps a task and its completion handle for delivery.
func NewEnvelope(t *task.Task, completion future.Completable) *Envelope {
	return &Envelope{
		task:       t,
		completion: completion,
	}
}

// Task returns the task carried by the envelope.
func (e *Envelope) Task() *task.Task {
	return e.task
}

// complete delivers the result to the awaiting future.
func (e *Envelope) complete(result *task.Result) {
	if e.completion != nil {
		e.completion.Success(result)
	}
}

// fail fails the awaiting future without producing a Result.
func (e *Envelope) fail(err error) {
	if e.completion != nil {
		e.completion.Failure(err)
	}
}

// Mailbox defines the contract for a worker's task queue.
//
// Concurrency and ordering
//   - Implementations must be safe for multiple concurrent producers
//     calling Enqueue (MPSC).
//   - The worker consumes from a single goroutine; implementations need
//     not support concurrent consumers.
//   - The default expectation is FIFO ordering. PriorityMailbox orders
//     by task priority with a FIFO tie-break, which it documents.
//
// Non-blocking behavior
//   - Dequeue must be non-blocking and return nil when the mailbox is
//     empty; the worker polls Dequeue in a loop.
//   - Enqueue may block only for the bounded blocking variant. Bounded
//     non-blocking variants return ErrMailboxFull when at capacity.
//
// Resource management
//   - Dispose releases resources and unblocks internal waiters. After
//     Dispose, Enqueue fails and Dequeue returns nil.
type Mailbox interface {
	// Enqueue pushes an envelope into the mailbox.
	Enqueue(env *Envelope) error
	// Dequeue fetches the next envelope from the mailbox, or nil when
	// the mailbox is empty.
	Dequeue() *Envelope
	// IsEmpty reports whether the mailbox currently has no envelopes.
	// This is a best-effort snapshot under concurrency.
	IsEmpty() bool
	// Len returns a snapshot of the number of pending envelopes. The
	// value may be approximate under concurrency.
	Len() int64
	// Dispose releases any resources held by the mailbox. The mailbox
	// must not be used after Dispose returns.
	Dispose()
}

// MailboxProvider constructs a fresh mailbox. Workers call it once at
// creation and again on every restart, so a restarted worker never
// inherits the previous incarnation's queue.
type MailboxProvider func() Mailbox
