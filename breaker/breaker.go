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

// Package breaker implements a circuit breaker that wraps a worker or
// downstream call. It counts failures over a rolling bucketed window,
// rejects work while Open, and recovers through a limited number of
// probe calls in HalfOpen.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gerrors "github.com/taskmill/taskmill/errors"
)

// Sentinel errors reported by the breaker. Failure sites wrap them with
// contextual detail, so callers should match with errors.Is.
var (
	// ErrOpen is returned when the breaker rejects a call outright.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrTimeout is returned when the context expires before the
	// wrapped call finishes; the context's own error is chained.
	ErrTimeout = errors.New("circuit breaker execution timed out")
)

// executionOutcome holds the outcome of a function execution
type executionOutcome struct {
	value any
	err   error
}

// CircuitBreaker is a thread-safe circuit breaker implementation.
//
// It can be driven two ways: Execute wraps a call end to end, while the
// TryAllow / OnSuccess / OnFailure triple supports admission-style use
// where the outcome only becomes known later (e.g. when a task's Result
// arrives asynchronously).
type CircuitBreaker struct {
	state     int32 // atomic
	openUntil int64 // unix nano when Open ends

	opts *options

	window *rollingWindow
	mu     sync.Mutex // guards transitions

	// half-open probe semaphore
	semCh chan struct{}

	// consecutive probe successes while half-open
	probeStreak int32 // atomic

	lastFailure atomic.Uint64 // unix nano
	lastSuccess atomic.Uint64 // unix nano
}

// New constructs a circuit breaker, applying sensible defaults for
// invalid option values.
func New(opts ...Option) *CircuitBreaker {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	o.Sanitize()
	return newBreaker(o)
}

// NewWithValidation constructs a circuit breaker and returns an error
// when the provided options are invalid.
func NewWithValidation(opts ...Option) (*CircuitBreaker, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return newBreaker(o), nil
}

func newBreaker(o *options) *CircuitBreaker {
	return &CircuitBreaker{
		state:     int32(Closed),
		openUntil: 0,
		opts:      o,
		window:    newRollingWindow(o.window, o.buckets, o.clock),
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() State { return State(atomic.LoadInt32(&b.state)) }

// TryAllow returns whether a call is permitted at this moment. In the
// half-open state a successful TryAllow claims a probe slot; the slot is
// released by the matching OnSuccess or OnFailure call.
func (b *CircuitBreaker) TryAllow() bool {
	now := b.opts.clock()
	s := b.State()
	if s == Closed {
		return true
	}

	if s == Open {
		if now.UnixNano() >= atomic.LoadInt64(&b.openUntil) {
			b.toHalfOpen()
			// fallthrough to half-open handling
		} else {
			return false
		}
	}
	// Half-open: enforce the probe semaphore
	b.ensureSem()
	select {
	case b.semCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// OnSuccess records a successful call.
func (b *CircuitBreaker) OnSuccess() {
	b.window.record(true)
	b.lastSuccess.Store(uint64(b.opts.clock().UnixNano()))
	if b.State() == HalfOpen {
		b.releaseProbe()
		streak := atomic.AddInt32(&b.probeStreak, 1)
		if int(streak) >= b.opts.probeSuccesses {
			b.toClosed()
		}
	}
}

// OnFailure records a failed call.
func (b *CircuitBreaker) OnFailure() {
	b.window.record(false)
	b.lastFailure.Store(uint64(b.opts.clock().UnixNano()))
	switch b.State() {
	case HalfOpen:
		// any probe failure reopens the breaker
		b.releaseProbe()
		b.toOpen()
	case Closed:
		_, failures := b.window.totals()
		if failures >= uint64(b.opts.failureThreshold) {
			b.toOpen()
		}
	}
}

// Execute runs fn if allowed. If the breaker rejects the call, it
// optionally invokes fallback. It propagates ctx cancellation.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error), fallback ...func(context.Context, error) (any, error)) (any, error) {
	if !b.TryAllow() {
		return b.handleRejection(ctx, ErrOpen, fallback...)
	}
	return b.executeWithTimeout(ctx, fn, fallback...)
}

// Snapshot is a point-in-time view of the breaker's state and the
// success/failure counts inside the rolling window.
type Snapshot struct {
	State       State
	Successes   uint64
	Failures    uint64
	Total       uint64
	Window      time.Duration
	WindowStart time.Time
	WindowEnd   time.Time
	LastFailure time.Time
	LastSuccess time.Time
}

func (s Snapshot) String() string {
	return fmt.Sprintf("state=%s total=%d success=%d fail=%d window=%s",
		s.State, s.Total, s.Successes, s.Failures, s.Window)
}

// Snapshot captures the rolling counts and state for inspection.
func (b *CircuitBreaker) Snapshot() Snapshot {
	wins, wine := b.window.bounds()
	succ, fail := b.window.totals()
	s := Snapshot{
		State:       b.State(),
		Successes:   succ,
		Failures:    fail,
		Total:       succ + fail,
		Window:      b.opts.window,
		WindowStart: wins,
		WindowEnd:   wine,
	}
	if lf := b.lastFailure.Load(); lf > 0 {
		s.LastFailure = time.Unix(0, int64(lf))
	}
	if ls := b.lastSuccess.Load(); ls > 0 {
		s.LastSuccess = time.Unix(0, int64(ls))
	}
	return s
}

// handleRejection handles the case when the breaker rejects a call
func (b *CircuitBreaker) handleRejection(ctx context.Context, err error, fallback ...func(context.Context, error) (any, error)) (any, error) {
	if len(fallback) > 0 {
		return fallback[0](ctx, err)
	}
	return nil, err
}

// executeWithTimeout executes the function with timeout handling
func (b *CircuitBreaker) executeWithTimeout(ctx context.Context, fn func(context.Context) (any, error), fallback ...func(context.Context, error) (any, error)) (any, error) {
	outcomeCh := make(chan executionOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- executionOutcome{err: panicError(r)}
			}
		}()

		value, err := fn(ctx)
		outcomeCh <- executionOutcome{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		b.OnFailure()
		return b.handleRejection(ctx, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err()), fallback...)
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			b.OnFailure()
			return b.handleRejection(ctx, outcome.err, fallback...)
		}
		b.OnSuccess()
		return outcome.value, nil
	}
}

// panicError converts a recovered panic value into a PanicError.
func panicError(r any) error {
	switch v := r.(type) {
	case error:
		return gerrors.NewPanicError(v)
	default:
		return gerrors.NewPanicError(fmt.Errorf("%v", v))
	}
}

// ensureSem initializes the half-open semaphore lazily.
func (b *CircuitBreaker) ensureSem() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.semCh != nil {
		return
	}
	maxCalls := b.opts.halfOpenMaxCalls
	if maxCalls <= 0 {
		maxCalls = 1
	}
	b.semCh = make(chan struct{}, maxCalls)
}

// releaseProbe releases one probe permit if present; non-blocking.
func (b *CircuitBreaker) releaseProbe() {
	b.mu.Lock()
	sem := b.semCh
	b.mu.Unlock()
	if sem != nil {
		select {
		case <-sem:
		default:
		}
	}
}

// resetSemLocked replaces the half-open semaphore with a fresh, empty
// channel of the given capacity. Caller must hold b.mu.
func (b *CircuitBreaker) resetSemLocked(newCap int) {
	if newCap <= 0 {
		b.semCh = nil
		return
	}
	b.semCh = make(chan struct{}, newCap)
}

// transitionTo attempts to transition from the current state to the
// target state. Returns false when already in the target state.
func (b *CircuitBreaker) transitionTo(targetState State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	currentState := State(atomic.LoadInt32(&b.state))
	if currentState == targetState {
		return false
	}

	switch targetState {
	case Open:
		until := b.opts.clock().Add(b.opts.openTimeout).UnixNano()
		atomic.StoreInt64(&b.openUntil, until)
		// while open, reject everything; clear the probe semaphore
		b.resetSemLocked(0)
	case HalfOpen:
		// reset the window and streak so probes evaluate fresh
		b.window.reset()
		atomic.StoreInt32(&b.probeStreak, 0)
		b.resetSemLocked(b.opts.halfOpenMaxCalls)
	case Closed:
		b.window.reset()
		atomic.StoreInt32(&b.probeStreak, 0)
		b.resetSemLocked(0)
	}

	atomic.StoreInt32(&b.state, int32(targetState))
	return true
}

func (b *CircuitBreaker) toOpen()     { b.transitionTo(Open) }
func (b *CircuitBreaker) toHalfOpen() { b.transitionTo(HalfOpen) }
func (b *CircuitBreaker) toClosed()   { b.transitionTo(Closed) }
