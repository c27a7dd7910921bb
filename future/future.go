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

// Package future provides the handle a caller holds while waiting for
// a submitted task's Result. A Future is single-assignment: it is
// completed exactly once by the worker that executed the task.
package future

import (
	"context"
	"sync"

	"github.com/taskmill/taskmill/task"
)

// Future represents a Result which may or may not currently be
// available, but will be available at some point, or an error if the
// wait was abandoned.
//
// Await blocks until the Future is completed or the provided context is
// canceled. Waiting is always explicit and cancellable: a caller that
// stops waiting does not affect the worker, whose Result is simply
// discarded when it eventually arrives (soft cancel).
type Future interface {
	// Await blocks until the Future is completed or context is canceled
	// and returns either a result or an error.
	Await(context.Context) (*task.Result, error)

	// complete completes the Future with either a result or an error.
	// It is used by [Completable] internally.
	complete(*task.Result, error)
}

// Completable is the writable, single-assignment side of a Future.
// The runtime completes it; callers only ever see the Future.
type Completable interface {
	// Success completes the underlying Future with a result.
	Success(*task.Result)

	// Failure fails the underlying Future with an error.
	Failure(error)

	// Future returns the underlying Future.
	Future() Future
}

// future implements the Future interface.
type future struct {
	acceptOnce   sync.Once
	completeOnce sync.Once
	done         chan any
	result       *task.Result
	err          error
}

// Verify future satisfies the Future interface.
var _ Future = (*future)(nil)

// newFuture returns a new Future.
func newFuture() Future {
	return &future{
		done: make(chan any, 1),
	}
}

// wait blocks once, until the Future result is available or until the
// context is canceled.
func (x *future) wait(ctx context.Context) {
	x.acceptOnce.Do(func() {
		select {
		case outcome := <-x.done:
			x.setOutcome(outcome)
		case <-ctx.Done():
			x.setOutcome(ctx.Err())
		}
	})
}

// setOutcome assigns a value to the Future instance.
func (x *future) setOutcome(outcome any) {
	switch value := outcome.(type) {
	case error:
		x.err = value
	default:
		x.result = value.(*task.Result)
	}
}

// Await blocks until the Future is completed or context is canceled and
// returns either a result or an error.
func (x *future) Await(ctx context.Context) (*task.Result, error) {
	x.wait(ctx)
	return x.result, x.err
}

// complete completes the Future with either a result or an error.
func (x *future) complete(result *task.Result, err error) {
	x.completeOnce.Do(func() {
		if err != nil {
			x.done <- err
		} else {
			x.done <- result
		}
	})
}

// completer implements the Completable interface.
type completer struct {
	once   sync.Once
	future Future
}

// Verify completer satisfies the Completable interface.
var _ Completable = (*completer)(nil)

// NewCompletable returns a new Completable.
func NewCompletable() Completable {
	return &completer{
		future: newFuture(),
	}
}

// Success completes the underlying Future with a given result.
func (p *completer) Success(result *task.Result) {
	p.once.Do(func() {
		p.future.complete(result, nil)
	})
}

// Failure fails the underlying Future with a given error.
func (p *completer) Failure(err error) {
	p.once.Do(func() {
		p.future.complete(nil, err)
	})
}

// Future returns the underlying Future.
func (p *completer) Future() Future {
	return p.future
}
