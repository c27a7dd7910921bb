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
	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/task"
)

// Option configures a Worker at creation time.
type Option func(*Worker)

// WithMailboxProvider sets the mailbox factory used at creation and on
// every restart. Defaults to NewDefaultMailbox.
func WithMailboxProvider(provider MailboxProvider) Option {
	return func(w *Worker) { w.mailboxProvider = provider }
}

// WithLogger sets the worker logger.
func WithLogger(logger log.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithEventStream sets the stream lifecycle events are published to.
// Without a stream the worker runs unobserved.
func WithEventStream(stream eventstream.Stream) Option {
	return func(w *Worker) { w.eventsStream = stream }
}

// WithResultObserver registers a callback invoked with every Result the
// worker emits. Pools use it to feed task outcomes into their circuit
// breaker. The callback runs on the worker's processing goroutine and
// must not block.
func WithResultObserver(observer func(*task.Result)) Option {
	return func(w *Worker) { w.observer = observer }
}
