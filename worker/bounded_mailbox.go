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
	gods "github.com/Workiva/go-datastructures/queue"

	gerrors "github.com/taskmill/taskmill/errors"
)

// BoundedMailbox is a bounded MPSC mailbox backed by a ring buffer.
//
// Overflow policy
//   - Blocking (default): Enqueue blocks when the mailbox is full until
//     space becomes available or the mailbox is disposed.
//   - Non-blocking: Enqueue fails immediately with ErrMailboxFull when
//     the mailbox is at capacity.
//
// In both policies the mailbox is safe for multiple producers and a
// single consumer, and FIFO ordering is preserved.
type BoundedMailbox struct {
	underlying *gods.RingBuffer
	blocking   bool
}

// enforce compilation error
var _ Mailbox = (*BoundedMailbox)(nil)

// NewBoundedMailbox creates a bounded, blocking mailbox with the given
// capacity. Capacity must be a positive integer. When the mailbox is
// full, Enqueue blocks the producer until space becomes available or
// the mailbox is disposed.
func NewBoundedMailbox(capacity int) *BoundedMailbox {
	return &BoundedMailbox{
		underlying: gods.NewRingBuffer(uint64(capacity)),
		blocking:   true,
	}
}

// NewNonBlockingBoundedMailbox creates a bounded mailbox with the given
// capacity that rejects overflow instead of blocking: Enqueue on a full
// mailbox returns ErrMailboxFull synchronously.
func NewNonBlockingBoundedMailbox(capacity int) *BoundedMailbox {
	return &BoundedMailbox{
		underlying: gods.NewRingBuffer(uint64(capacity)),
	}
}

// Enqueue inserts an envelope into the mailbox according to the
// configured overflow policy. Returns an error when the mailbox has
// been disposed.
func (mailbox *BoundedMailbox) Enqueue(env *Envelope) error {
	if mailbox.blocking {
		return mailbox.underlying.Put(env)
	}
	queued, err := mailbox.underlying.Offer(env)
	if err != nil {
		return err
	}
	if !queued {
		return gerrors.ErrMailboxFull
	}
	return nil
}

// Dequeue removes and returns the next envelope, or nil when the
// mailbox is empty. FIFO order is preserved.
func (mailbox *BoundedMailbox) Dequeue() *Envelope {
	if mailbox.underlying.Len() > 0 {
		item, _ := mailbox.underlying.Get()
		if v, ok := item.(*Envelope); ok {
			return v
		}
	}
	return nil
}

// IsEmpty reports whether the mailbox currently has no envelopes.
// This check is a snapshot and may change immediately under concurrency.
func (mailbox *BoundedMailbox) IsEmpty() bool {
	return mailbox.underlying.Len() == 0
}

// Len returns the current number of envelopes in the mailbox. The value
// is a snapshot and may change immediately after the call under
// concurrency.
func (mailbox *BoundedMailbox) Len() int64 {
	return int64(mailbox.underlying.Len())
}

// Capacity returns the configured maximum number of envelopes.
func (mailbox *BoundedMailbox) Capacity() int64 {
	return int64(mailbox.underlying.Cap())
}

// Dispose releases resources held by the underlying ring buffer and
// unblocks any internal waiters maintained by it. Do not use the
// mailbox after calling Dispose.
func (mailbox *BoundedMailbox) Dispose() {
	mailbox.underlying.Dispose()
}
