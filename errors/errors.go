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

// Package errors defines the error taxonomy of the runtime. Submission
// failures are returned synchronously to the caller, per-task failures
// travel inside a Result, and structural failures cross component
// boundaries as lifecycle events carrying one of these errors.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskRequired is returned when a nil task is submitted.
	ErrTaskRequired = errors.New("task is required")

	// ErrMailboxFull is returned when a bounded mailbox with a
	// non-blocking policy has reached its capacity.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrWorkerTerminated is returned when work is submitted to a worker
	// that is no longer accepting submissions.
	ErrWorkerTerminated = errors.New("worker is not accepting work")

	// ErrNoAvailableWorker is returned by a pool when the selected worker
	// is terminated and retry-selection is not configured.
	ErrNoAvailableWorker = errors.New("no available worker")

	// ErrRateLimited is returned when task admission is rejected by the
	// sliding-window rate limiter.
	ErrRateLimited = errors.New("rate limited")

	// ErrRestartBudgetExceeded signals that a supervisor gave up on an
	// entity after exhausting its restart budget within the rolling window.
	ErrRestartBudgetExceeded = errors.New("restart budget exceeded")

	// ErrInvalidResumeToken is returned when Resume is called with a token
	// that does not match the one issued by Pause. Tokens are single-use.
	ErrInvalidResumeToken = errors.New("invalid resume token")

	// ErrWorkerNotPaused is returned when Resume is called on a worker
	// that is not paused.
	ErrWorkerNotPaused = errors.New("worker is not paused")

	// ErrWorkerAlreadyPaused is returned when Pause is called on a worker
	// that is already paused.
	ErrWorkerAlreadyPaused = errors.New("worker is already paused")

	// ErrPoolNotStarted is returned when a pool operation is attempted
	// before the pool has started.
	ErrPoolNotStarted = errors.New("worker pool has not started")

	// ErrPoolStopped is returned when work is submitted to a pool that has
	// been shut down.
	ErrPoolStopped = errors.New("worker pool is stopped")

	// ErrInvalidPoolSize is returned when a pool is created or resized
	// with a non-positive worker count.
	ErrInvalidPoolSize = errors.New("pool size must be positive")

	// ErrAlreadySupervised is returned when an entity id is registered
	// twice with the same supervisor.
	ErrAlreadySupervised = errors.New("entity is already supervised")
)

// PanicError wraps a panic recovered while a worker was executing a
// task.
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError.
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// FatalError marks an unrecoverable isolation-level fault. A worker
// whose handler returns a FatalError terminates instead of moving on to
// the next task, and its supervisor applies the restart policy.
type FatalError struct {
	err error
}

// enforce compilation error
var _ error = (*FatalError)(nil)

// NewFatalError creates an instance of FatalError.
func NewFatalError(err error) *FatalError {
	return &FatalError{
		err: fmt.Errorf("fatal: %w", err),
	}
}

// Error implements the standard error interface.
func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// AnyError is a catch-all marker used in supervisor directive rules to
// match every error type.
type AnyError struct{}

// interface guard
var _ error = (*AnyError)(nil)

// Error implements error.
func (*AnyError) Error() string {
	return "*"
}
