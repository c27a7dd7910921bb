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
	"fmt"
	"time"

	"github.com/taskmill/taskmill/internal/validation"
)

// options configures the breaker.
type options struct {
	failureThreshold int           // failures within the window that trip the breaker
	openTimeout      time.Duration // how long to stay open before moving to half-open
	window           time.Duration // total rolling observation window
	buckets          int           // number of buckets in the rolling window
	probeSuccesses   int           // consecutive probe successes required to close
	halfOpenMaxCalls int           // concurrent probes permitted in half-open
	clock            func() time.Time
}

var _ validation.Validator = (*options)(nil)

// Validate checks if the options are valid and returns an error if not
func (o *options) Validate() error {
	if o.failureThreshold < 1 {
		return fmt.Errorf("failureThreshold must be at least 1, got %d", o.failureThreshold)
	}
	if o.openTimeout <= 0 {
		return fmt.Errorf("openTimeout must be positive, got %v", o.openTimeout)
	}
	if o.window <= 0 {
		return fmt.Errorf("window must be positive, got %v", o.window)
	}
	if o.buckets < 1 {
		return fmt.Errorf("buckets must be at least 1, got %d", o.buckets)
	}
	if o.probeSuccesses < 1 {
		return fmt.Errorf("probeSuccesses must be at least 1, got %d", o.probeSuccesses)
	}
	if o.halfOpenMaxCalls < 1 {
		return fmt.Errorf("halfOpenMaxCalls must be at least 1, got %d", o.halfOpenMaxCalls)
	}
	if o.clock == nil {
		return fmt.Errorf("clock function cannot be nil")
	}
	bucketDur := o.window / time.Duration(o.buckets)
	if bucketDur < time.Millisecond {
		return fmt.Errorf("bucket duration too small (%v), consider reducing buckets or increasing window", bucketDur)
	}
	return nil
}

func defaultOptions() *options {
	return &options{
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
		window:           60 * time.Second,
		buckets:          12,
		probeSuccesses:   1,
		halfOpenMaxCalls: 1,
		clock:            time.Now,
	}
}

// Sanitize adjusts invalid options to their default values.
func (o *options) Sanitize() {
	if o.failureThreshold < 1 {
		o.failureThreshold = 1
	}
	if o.openTimeout <= 0 {
		o.openTimeout = 30 * time.Second
	}
	if o.window <= 0 {
		o.window = time.Second
	}
	if o.buckets < 1 {
		o.buckets = 1
	}
	if o.probeSuccesses < 1 {
		o.probeSuccesses = 1
	}
	if o.halfOpenMaxCalls < 1 {
		o.halfOpenMaxCalls = 1
	}
	if o.clock == nil {
		o.clock = time.Now
	}
}

// Option functional option.
type Option func(*options)

// WithFailureThreshold sets the number of failures within the
// observation window that trips the breaker from Closed to Open.
func WithFailureThreshold(n int) Option { return func(o *options) { o.failureThreshold = n } }

// WithOpenTimeout sets the duration the circuit breaker remains open before
// transitioning to the half-open state.
func WithOpenTimeout(d time.Duration) Option { return func(o *options) { o.openTimeout = d } }

// WithWindow sets the total rolling observation window and the number of
// buckets used for sampling. The window determines how far back failures
// are counted, and buckets control the sampling granularity.
func WithWindow(d time.Duration, buckets int) Option {
	return func(o *options) { o.window, o.buckets = d, buckets }
}

// WithProbeSuccesses sets how many consecutive probe successes are
// required in the half-open state before the breaker closes again.
func WithProbeSuccesses(n int) Option { return func(o *options) { o.probeSuccesses = n } }

// WithHalfOpenMaxCalls sets the maximum number of concurrent probe calls
// permitted when the circuit breaker is in the half-open state.
func WithHalfOpenMaxCalls(n int) Option { return func(o *options) { o.halfOpenMaxCalls = n } }

// WithClock sets a custom clock function for retrieving the current time.
// Useful for testing or overriding time behavior.
func WithClock(c func() time.Time) Option { return func(o *options) { o.clock = c } }
