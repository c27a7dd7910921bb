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

// Package supervisor watches the lifecycle events of managed entities
// and applies a recovery policy when they fail. Failure information
// reaches it only through the event stream; the supervisor alone
// mutates its restart bookkeeping, so no locks are shared with the
// entities it manages.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"

	gerrors "github.com/taskmill/taskmill/errors"
	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/internal/timer"
	"github.com/taskmill/taskmill/internal/validation"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/worker"
)

// Entity is anything a supervisor can manage: it must be identifiable,
// restartable and stoppable. Workers satisfy it.
type Entity interface {
	ID() string
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
}

// enforce compilation error
var _ Entity = (*worker.Worker)(nil)

// restartAttempts bounds how many times a single scheduled restart is
// retried before the failure is escalated.
const (
	restartAttempts    = 3
	restartMinInterval = 10 * time.Millisecond
	restartMaxInterval = 100 * time.Millisecond
)

// Supervisor observes failure signals from its managed entities and
// applies directives keyed by the error's concrete type. Restarts are
// bounded: at most maxRestarts within the rolling window per entity,
// each delayed by exponential backoff. An entity that exhausts the
// budget is marked permanently failed and escalated on the supervisor
// topic, where a parent supervisor may be listening.
type Supervisor struct {
	strategy    Strategy
	directives  map[string]Directive
	maxRestarts int
	window      time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration
	topics      []string
	logger      log.Logger
	clock       func() time.Time

	stream eventstream.Stream
	sub    eventstream.Subscriber

	// managed, restartTimes and failed are mutated only by the event
	// loop goroutine (and Supervise before Start)
	mu           sync.RWMutex
	managed      map[string]Entity
	restartTimes map[string][]time.Time
	failed       mapset.Set[string]

	ctx     context.Context
	started bool
	wg      sync.WaitGroup
}

// New creates a Supervisor wired to the given event stream. Defaults:
// OneForOne strategy, panics resumed, fatal faults restarted, three
// restarts per minute with no backoff delay.
func New(stream eventstream.Stream, opts ...Option) (*Supervisor, error) {
	chain := validation.New(validation.FailFast()).
		AddAssertion(stream != nil, "event stream is required")
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		strategy:     OneForOneStrategy,
		directives:   make(map[string]Directive),
		maxRestarts:  3,
		window:       time.Minute,
		topics:       []string{worker.Topic},
		logger:       log.DefaultLogger,
		clock:        time.Now,
		stream:       stream,
		managed:      make(map[string]Entity),
		restartTimes: make(map[string][]time.Time),
		failed:       mapset.NewSet[string](),
	}

	// default directives: a recovered panic was already handled locally,
	// a fatal fault killed the entity and warrants a restart
	s.directives[errorType(&gerrors.PanicError{})] = ResumeDirective
	s.directives[errorType(&gerrors.FatalError{})] = RestartDirective

	for _, opt := range opts {
		opt(s)
	}

	// the catch-all rule overrides every error-specific rule
	if directive, ok := s.directives[errorType(new(gerrors.AnyError))]; ok {
		s.directives = map[string]Directive{
			errorType(new(gerrors.AnyError)): directive,
		}
	}
	return s, nil
}

// Supervise registers entities with the supervisor. Registering the
// same entity id twice fails with ErrAlreadySupervised.
func (s *Supervisor) Supervise(entities ...Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entity := range entities {
		if _, ok := s.managed[entity.ID()]; ok {
			return fmt.Errorf("entity=(%s): %w", entity.ID(), gerrors.ErrAlreadySupervised)
		}
		s.managed[entity.ID()] = entity
	}
	return nil
}

// Start subscribes to the watched topics and begins applying the
// recovery policy. Directive actions run on the supervisor's own
// goroutine, one failure at a time.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ctx = context.WithoutCancel(ctx)
	s.sub = s.stream.AddSubscriber()
	for _, topic := range s.topics {
		s.stream.Subscribe(s.sub, topic)
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watch()
	s.logger.Infof("supervisor started watching topics=%v strategy=%s", s.topics, s.strategy)
	return nil
}

// Stop detaches the supervisor from the stream and waits for its event
// loop to exit. Managed entities are left running.
func (s *Supervisor) Stop(context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	sub := s.sub
	s.mu.Unlock()

	s.stream.RemoveSubscriber(sub)
	s.wg.Wait()
	s.logger.Info("supervisor stopped")
	return nil
}

// IsPermanentlyFailed reports whether the entity exhausted its restart
// budget and was given up on.
func (s *Supervisor) IsPermanentlyFailed(id string) bool {
	return s.failed.Contains(id)
}

// RestartCount returns how many restarts of the entity currently fall
// within the rolling window.
func (s *Supervisor) RestartCount(id string) int {
	now := s.clock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, stamp := range s.restartTimes[id] {
		if stamp.After(now.Add(-s.window)) {
			count++
		}
	}
	return count
}

// watch consumes lifecycle events until the subscription is shut down.
func (s *Supervisor) watch() {
	defer s.wg.Done()
	for {
		message, ok := s.sub.Next()
		if !ok {
			return
		}
		s.handleEvent(message.Payload())
	}
}

// handleEvent routes a lifecycle event to the recovery policy. Normal,
// requested terminations carry no reason and are ignored: they never
// trigger a restart.
func (s *Supervisor) handleEvent(payload any) {
	switch event := payload.(type) {
	case *worker.ExitedEvent:
		if event.Reason == nil {
			return
		}
		s.applyDirective(event.WorkerID, event.Reason)
	case *worker.ErrorEvent:
		s.applyDirective(event.WorkerID, event.Err)
	case *EscalatedEvent:
		// a nested supervisor gave up on this entity
		s.applyDirective(event.EntityID, event.Err)
	}
}

// applyDirective resolves and executes the directive for a failure
// signaled by a managed entity.
func (s *Supervisor) applyDirective(id string, fault error) {
	if s.failed.Contains(id) {
		return
	}

	s.mu.RLock()
	entity, managed := s.managed[id]
	s.mu.RUnlock()
	if !managed {
		return
	}

	directive := s.directiveFor(fault)
	s.logger.Infof("supervisor: entity=(%s) fault=(%v) directive=%s", id, fault, directive)

	switch directive {
	case ResumeDirective:
	case StopDirective:
		if err := entity.Stop(s.ctx); err != nil {
			s.logger.Errorf("supervisor: failed to stop entity=(%s): %v", id, err)
		}
	case EscalateDirective:
		s.escalate(id, fault)
	case RestartDirective:
		if s.strategy == OneForAllStrategy {
			s.restartAll(fault)
			return
		}
		s.restart(entity, fault)
	}
}

// directiveFor resolves the directive for an error by its concrete
// type. Unmapped fatal faults restart; everything else resumes.
func (s *Supervisor) directiveFor(fault error) Directive {
	if directive, ok := s.directives[errorType(new(gerrors.AnyError))]; ok {
		return directive
	}
	if directive, ok := s.directives[errorType(fault)]; ok {
		return directive
	}
	if gerrors.IsFatal(fault) {
		return RestartDirective
	}
	return ResumeDirective
}

// restart applies the budgeted, backed-off restart policy to a single
// entity.
func (s *Supervisor) restart(entity Entity, fault error) {
	id := entity.ID()
	now := s.clock()

	s.mu.Lock()
	history := pruneBefore(s.restartTimes[id], now.Add(-s.window))
	if len(history) >= s.maxRestarts {
		s.restartTimes[id] = history
		s.mu.Unlock()
		s.giveUp(entity, fault)
		return
	}
	attempt := len(history)
	s.restartTimes[id] = append(history, now)
	s.mu.Unlock()

	if delay := s.backoffDelay(attempt); delay > 0 {
		t := timer.New(delay)
		t.Start()
		<-t.C()
	}

	retrier := retry.NewRetrier(restartAttempts, restartMinInterval, restartMaxInterval)
	if err := retrier.RunContext(s.ctx, entity.Restart); err != nil {
		s.logger.Errorf("supervisor: restart of entity=(%s) failed: %v", id, err)
		s.giveUp(entity, err)
		return
	}
	s.logger.Infof("supervisor: entity=(%s) restarted (%d within window)", id, attempt+1)
}

// restartAll restarts every managed entity, each against its own
// restart budget.
func (s *Supervisor) restartAll(fault error) {
	s.mu.RLock()
	entities := make([]Entity, 0, len(s.managed))
	for _, entity := range s.managed {
		entities = append(entities, entity)
	}
	s.mu.RUnlock()

	for _, entity := range entities {
		if s.failed.Contains(entity.ID()) {
			continue
		}
		s.restart(entity, fault)
	}
}

// backoffDelay computes the exponential restart delay for the nth
// restart within the window, capped at the configured maximum.
func (s *Supervisor) backoffDelay(attempt int) time.Duration {
	if s.backoffBase <= 0 {
		return 0
	}
	delay := s.backoffBase << uint(attempt)
	if s.backoffCap > 0 && delay > s.backoffCap {
		delay = s.backoffCap
	}
	return delay
}

// giveUp marks an entity permanently failed, stops attempting restarts
// and surfaces the failure to the next level up.
func (s *Supervisor) giveUp(entity Entity, fault error) {
	id := entity.ID()
	s.failed.Add(id)
	err := fmt.Errorf("entity=(%s): %w: last fault: %v", id, gerrors.ErrRestartBudgetExceeded, fault)
	s.logger.Error(err)
	s.escalate(id, err)
	_ = entity.Stop(s.ctx)
}

// escalate publishes the failure on the supervisor topic.
func (s *Supervisor) escalate(id string, fault error) {
	s.stream.Publish(Topic, &EscalatedEvent{
		EntityID: id,
		Err:      fault,
		At:       s.clock(),
	})
}

// pruneBefore drops timestamps at or before the cutoff.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	return kept
}
