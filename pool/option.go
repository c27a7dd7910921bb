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

package pool

import (
	"github.com/taskmill/taskmill/breaker"
	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/ratelimit"
	"github.com/taskmill/taskmill/worker"
)

// Option configures a Pool at creation time.
type Option func(*Pool)

// WithSelectionPolicy sets the routing policy. Defaults to RoundRobin.
func WithSelectionPolicy(policy SelectionPolicy) Option {
	return func(p *Pool) { p.policy = policy }
}

// WithDrainPolicy sets how workers removed by Resize are retired.
// Defaults to DrainGracefully.
func WithDrainPolicy(policy DrainPolicy) Option {
	return func(p *Pool) { p.drainPolicy = policy }
}

// WithLogger sets the pool logger, shared with its workers.
func WithLogger(logger log.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithEventStream sets the stream the pool's workers publish lifecycle
// events to. A supervisor watching the pool subscribes to it.
func WithEventStream(stream eventstream.Stream) Option {
	return func(p *Pool) { p.eventsStream = stream }
}

// WithMailboxProvider sets the mailbox factory handed to every spawned
// worker. Defaults to the unbounded default mailbox.
func WithMailboxProvider(provider worker.MailboxProvider) Option {
	return func(p *Pool) { p.mailboxProvider = provider }
}

// WithRateLimiter gates admissions through the given sliding-window
// limiter. Rejected submissions fail with ErrRateLimited.
func WithRateLimiter(limiter *ratelimit.SlidingWindow) Option {
	return func(p *Pool) { p.limiter = limiter }
}

// WithCircuitBreaker gates admissions through the given breaker and
// feeds every task outcome back into it. Rejected submissions fail with
// breaker.ErrOpen.
func WithCircuitBreaker(cb *breaker.CircuitBreaker) Option {
	return func(p *Pool) { p.circuitBreaker = cb }
}

// WithRetrySelection makes Submit retry the remaining workers when the
// selected one is terminated, instead of failing with
// ErrNoAvailableWorker on the first miss.
func WithRetrySelection() Option {
	return func(p *Pool) { p.retrySelection = true }
}
