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

package supervisor

import (
	"time"

	gerrors "github.com/taskmill/taskmill/errors"
	"github.com/taskmill/taskmill/log"
)

// Option configures a Supervisor at creation time.
type Option func(*Supervisor)

// WithStrategy sets the supervision strategy. Defaults to
// OneForOneStrategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Supervisor) { s.strategy = strategy }
}

// WithDirective maps an error's concrete type to a directive,
// overriding the default for that type.
func WithDirective(err error, directive Directive) Option {
	return func(s *Supervisor) { s.directives[errorType(err)] = directive }
}

// WithAnyErrorDirective applies one directive to every failure
// regardless of its error type. It overrides all error-specific rules.
func WithAnyErrorDirective(directive Directive) Option {
	return func(s *Supervisor) { s.directives[errorType(new(gerrors.AnyError))] = directive }
}

// WithRestartPolicy bounds restarts to maxRestarts within the rolling
// window. An entity failing beyond the budget is marked permanently
// failed and its failure is escalated.
func WithRestartPolicy(maxRestarts int, window time.Duration) Option {
	return func(s *Supervisor) {
		s.maxRestarts = maxRestarts
		s.window = window
	}
}

// WithBackoff sets the exponential restart delay: the nth restart in
// the window waits base doubled n times, capped at maxDelay. A zero
// base restarts immediately.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(s *Supervisor) {
		s.backoffBase = base
		s.backoffCap = maxDelay
	}
}

// WithTopics sets the event stream topics the supervisor watches.
// Defaults to the workers topic. A parent of nested supervisors adds
// the supervisor topic to observe escalations.
func WithTopics(topics ...string) Option {
	return func(s *Supervisor) { s.topics = topics }
}

// WithLogger sets the supervisor logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithClock sets a custom clock for the rolling restart window. Useful
// for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *Supervisor) { s.clock = clock }
}
