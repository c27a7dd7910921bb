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

// Package pool routes task submissions across a set of workers it owns.
// Admission runs through the optional rate limiter and circuit breaker
// before a worker is selected, and every task outcome is fed back into
// the breaker, so a failing pool trips open without the callers doing
// any bookkeeping.
package pool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/taskmill/taskmill/breaker"
	gerrors "github.com/taskmill/taskmill/errors"
	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/future"
	"github.com/taskmill/taskmill/internal/validation"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/ratelimit"
	"github.com/taskmill/taskmill/task"
	"github.com/taskmill/taskmill/worker"
)

// Pool manages a fixed set of workers and routes incoming tasks to them
// per its selection policy. Workers belong to the pool: their lifetime
// is bound to the pool's unless a worker is explicitly stopped.
type Pool struct {
	name            string
	handler         worker.Handler
	policy          SelectionPolicy
	drainPolicy     DrainPolicy
	logger          log.Logger
	eventsStream    eventstream.Stream
	mailboxProvider worker.MailboxProvider
	limiter         *ratelimit.SlidingWindow
	circuitBreaker  *breaker.CircuitBreaker
	retrySelection  bool
	initialSize     int

	fieldsLock sync.RWMutex
	workers    []*worker.Worker

	spawned atomic.Int64
	next    atomic.Uint32
	started atomic.Bool
	stopped atomic.Bool
}

// New creates a Pool named name that runs handler on size workers. The
// pool does not accept work until Start is called.
func New(name string, handler worker.Handler, size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, gerrors.ErrInvalidPoolSize
	}
	chain := validation.New(validation.FailFast()).
		AddAssertion(name != "", "pool name is required").
		AddAssertion(handler != nil, "pool handler is required")
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		name:        name,
		handler:     handler,
		policy:      RoundRobin,
		drainPolicy: DrainGracefully,
		logger:      log.DefaultLogger,
		initialSize: size,
		workers:     make([]*worker.Worker, 0, size),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// IsRunning reports whether the pool has started and has not been shut
// down.
func (p *Pool) IsRunning() bool {
	return p.started.Load() && !p.stopped.Load()
}

// Size returns the current number of workers.
func (p *Pool) Size() int {
	p.fieldsLock.RLock()
	defer p.fieldsLock.RUnlock()
	return len(p.workers)
}

// Workers returns a snapshot of the pool's workers in index order.
func (p *Pool) Workers() []*worker.Worker {
	p.fieldsLock.RLock()
	defer p.fieldsLock.RUnlock()
	snapshot := make([]*worker.Worker, len(p.workers))
	copy(snapshot, p.workers)
	return snapshot
}

// MailboxSize returns the total number of tasks queued across all
// workers.
func (p *Pool) MailboxSize() int64 {
	var total int64
	for _, w := range p.Workers() {
		total += w.MailboxSize()
	}
	return total
}

// ProcessedCount returns the total number of tasks processed across all
// workers since the pool started.
func (p *Pool) ProcessedCount() int64 {
	var total int64
	for _, w := range p.Workers() {
		total += w.ProcessedCount()
	}
	return total
}

// Start spawns the pool's workers and begins accepting submissions.
func (p *Pool) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}

	p.fieldsLock.Lock()
	defer p.fieldsLock.Unlock()
	for i := 0; i < p.initialSize; i++ {
		w, err := p.spawnWorker(ctx)
		if err != nil {
			return err
		}
		p.workers = append(p.workers, w)
	}
	p.logger.Infof("pool=(%s) started with %d workers policy=%s", p.name, len(p.workers), p.policy)
	return nil
}

// Submit routes a task to a worker and returns the Future carrying its
// eventual Result. Admission is checked in order: rate limiter, circuit
// breaker, then worker selection. Rejections are synchronous errors; a
// task is never silently dropped.
func (p *Pool) Submit(ctx context.Context, t *task.Task) (future.Future, error) {
	if p.stopped.Load() {
		return nil, gerrors.ErrPoolStopped
	}
	if !p.started.Load() {
		return nil, gerrors.ErrPoolNotStarted
	}

	if p.limiter != nil && !p.limiter.Allow() {
		return nil, gerrors.ErrRateLimited
	}
	if p.circuitBreaker != nil && !p.circuitBreaker.TryAllow() {
		return nil, breaker.ErrOpen
	}

	f, err := p.route(ctx, t)
	if err != nil && p.circuitBreaker != nil {
		// an admission that never reached a worker still counts against
		// the breaker and frees its probe slot
		p.circuitBreaker.OnFailure()
	}
	return f, err
}

// Resize grows or shrinks the pool to n workers. Removed workers are
// retired per the configured drain policy before the call returns.
func (p *Pool) Resize(ctx context.Context, n int) error {
	if n <= 0 {
		return gerrors.ErrInvalidPoolSize
	}
	if p.stopped.Load() {
		return gerrors.ErrPoolStopped
	}
	if !p.started.Load() {
		return gerrors.ErrPoolNotStarted
	}

	p.fieldsLock.Lock()
	current := len(p.workers)
	switch {
	case n > current:
		for i := current; i < n; i++ {
			w, err := p.spawnWorker(ctx)
			if err != nil {
				p.fieldsLock.Unlock()
				return err
			}
			p.workers = append(p.workers, w)
		}
		p.fieldsLock.Unlock()
		p.logger.Infof("pool=(%s) resized %d -> %d", p.name, current, n)
		return nil
	case n < current:
		victims := make([]*worker.Worker, current-n)
		copy(victims, p.workers[n:])
		p.workers = p.workers[:n]
		p.fieldsLock.Unlock()
		p.logger.Infof("pool=(%s) resized %d -> %d drain=%s", p.name, current, n, p.drainPolicy)
		return p.retire(ctx, victims)
	default:
		p.fieldsLock.Unlock()
		return nil
	}
}

// Shutdown gracefully shuts down every worker and waits for all of them
// to terminate. Every queued task produces a Result first. After
// Shutdown, submissions fail with ErrPoolStopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}

	workers := p.Workers()
	var mu sync.Mutex
	var errs error

	g := new(errgroup.Group)
	for _, w := range workers {
		w := w
		g.Go(func() error {
			if err := w.ShutdownGracefully(ctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Infof("pool=(%s) shutdown", p.name)
	return errs
}

// route picks a worker and forwards the task to it.
func (p *Pool) route(ctx context.Context, t *task.Task) (future.Future, error) {
	workers := p.Workers()
	if len(workers) == 0 {
		return nil, gerrors.ErrNoAvailableWorker
	}

	switch p.policy {
	case LeastLoaded:
		return p.routeLeastLoaded(ctx, t, workers)
	default:
		return p.routeRoundRobin(ctx, t, workers)
	}
}

// routeRoundRobin cycles deterministically through worker indices.
func (p *Pool) routeRoundRobin(ctx context.Context, t *task.Task, workers []*worker.Worker) (future.Future, error) {
	n := p.next.Inc()
	start := (int(n) - 1) % len(workers)

	selected := workers[start]
	if selected.IsRunning() {
		return selected.Submit(ctx, t)
	}
	if !p.retrySelection {
		return nil, gerrors.ErrNoAvailableWorker
	}

	// retry the rest of the ring in order
	for i := 1; i < len(workers); i++ {
		candidate := workers[(start+i)%len(workers)]
		if candidate.IsRunning() {
			return candidate.Submit(ctx, t)
		}
	}
	return nil, gerrors.ErrNoAvailableWorker
}

// routeLeastLoaded picks the running worker with the smallest mailbox
// depth, ties broken by the lowest worker index.
func (p *Pool) routeLeastLoaded(ctx context.Context, t *task.Task, workers []*worker.Worker) (future.Future, error) {
	var selected *worker.Worker
	var best int64
	for _, candidate := range workers {
		if !candidate.IsRunning() {
			continue
		}
		depth := candidate.MailboxSize()
		if selected == nil || depth < best {
			selected = candidate
			best = depth
		}
	}
	if selected == nil {
		return nil, gerrors.ErrNoAvailableWorker
	}
	return selected.Submit(ctx, t)
}

// retire winds down removed workers concurrently per the drain policy.
func (p *Pool) retire(ctx context.Context, victims []*worker.Worker) error {
	var mu sync.Mutex
	var errs error

	g := new(errgroup.Group)
	for _, w := range victims {
		w := w
		g.Go(func() error {
			var err error
			if p.drainPolicy == DrainImmediately {
				err = w.Stop(ctx)
			} else {
				err = w.ShutdownGracefully(ctx)
			}
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// spawnWorker creates and starts a pool worker wired to the pool's
// stream, mailbox factory and breaker feedback.
func (p *Pool) spawnWorker(ctx context.Context) (*worker.Worker, error) {
	id := fmt.Sprintf("%s-worker-%d", p.name, p.spawned.Inc()-1)
	opts := []worker.Option{
		worker.WithLogger(p.logger),
		worker.WithResultObserver(p.observe),
	}
	if p.eventsStream != nil {
		opts = append(opts, worker.WithEventStream(p.eventsStream))
	}
	if p.mailboxProvider != nil {
		opts = append(opts, worker.WithMailboxProvider(p.mailboxProvider))
	}

	w, err := worker.New(id, p.handler, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// observe feeds each task outcome into the circuit breaker.
func (p *Pool) observe(result *task.Result) {
	if p.circuitBreaker == nil {
		return
	}
	if result.Failure() != nil {
		p.circuitBreaker.OnFailure()
		return
	}
	p.circuitBreaker.OnSuccess()
}
