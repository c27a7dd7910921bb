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

// Package worker implements the isolated sequential executor at the
// heart of the runtime. A Worker owns its mailbox exclusively, processes
// one task at a time, and communicates with the rest of the system only
// through submitted envelopes and published lifecycle events; no other
// component touches its internal state.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	gerrors "github.com/taskmill/taskmill/errors"
	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/future"
	"github.com/taskmill/taskmill/internal/pause"
	"github.com/taskmill/taskmill/internal/ticker"
	"github.com/taskmill/taskmill/internal/validation"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/task"
)

// Handler is the computation a worker applies to each task. It runs
// synchronously on the worker's processing goroutine; at most one
// invocation is ever in flight per worker.
//
// A returned error is reported as a Failure result and the worker moves
// on to the next task. A FatalError terminates the worker instead,
// leaving restart to its supervisor.
type Handler func(ctx context.Context, t *task.Task) (any, error)

// State represents a worker lifecycle state.
type State int32

const (
	// StateIdle means the worker is running with no task in flight.
	StateIdle State = iota
	// StateBusy means the worker is executing a task.
	StateBusy
	// StatePaused means dequeueing is halted; queued tasks are retained.
	StatePaused
	// StateTerminated means the worker no longer accepts or processes work.
	StateTerminated
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBusy:
		return "Busy"
	case StatePaused:
		return "Paused"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// processing loop states
const (
	idle int32 = iota
	busy
)

// quiescencePollInterval is how often termination paths re-check that
// the processing loop has gone idle.
const quiescencePollInterval = time.Millisecond

// Worker executes tasks one at a time inside an isolated context.
//
// Scheduling follows an idle/busy flag: the first submission after an
// idle period flips the flag and spawns a processing goroutine that
// drains the mailbox and exits; submissions while the flag is busy are
// only enqueued. The worker therefore consumes no goroutine while idle
// and never runs two tasks concurrently.
type Worker struct {
	id              string
	handler         Handler
	mailboxProvider MailboxProvider
	logger          log.Logger
	eventsStream    eventstream.Stream
	observer        func(*task.Result)

	mailbox Mailbox

	started   atomic.Bool
	accepting atomic.Bool
	paused    atomic.Bool
	// halted disables the processing loop; set by stop, graceful
	// shutdown completion, and fatal faults.
	halted     atomic.Bool
	state      atomic.Int32
	processing atomic.Int32

	// inFlight counts tasks currently mid-execution; it never exceeds 1.
	inFlight       atomic.Int64
	processedCount atomic.Int64

	tokenLock   sync.Mutex
	resumeToken string

	fieldsLock sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Worker with the given identifier and handler. The
// worker does not accept work until Start is called.
func New(id string, handler Handler, opts ...Option) (*Worker, error) {
	chain := validation.New(validation.FailFast()).
		AddAssertion(id != "", "worker id is required").
		AddAssertion(handler != nil, "worker handler is required")
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	w := &Worker{
		id:              id,
		handler:         handler,
		mailboxProvider: func() Mailbox { return NewDefaultMailbox() },
		logger:          log.DefaultLogger,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.mailbox = w.mailboxProvider()
	w.processing.Store(idle)
	return w, nil
}

// ID returns the worker identifier.
func (w *Worker) ID() string {
	return w.id
}

// State returns the current lifecycle state of the worker.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// IsRunning reports whether the worker has started and has not
// terminated.
func (w *Worker) IsRunning() bool {
	return w.started.Load() && w.accepting.Load() && w.State() != StateTerminated
}

// MailboxSize returns the number of tasks waiting in the mailbox. Pools
// compare this across workers for least-loaded selection.
func (w *Worker) MailboxSize() int64 {
	return w.currentMailbox().Len()
}

// InFlight returns the number of tasks currently mid-execution. It is
// instrumentation for the one-task-at-a-time guarantee and is always
// zero or one.
func (w *Worker) InFlight() int64 {
	return w.inFlight.Load()
}

// ProcessedCount returns the number of Results the worker has emitted.
func (w *Worker) ProcessedCount() int64 {
	return w.processedCount.Load()
}

// Start makes the worker accept and process submissions. The provided
// context scopes the start call only; the worker's own lifetime is
// bound to Stop/ShutdownGracefully, not to ctx.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}

	w.fieldsLock.Lock()
	w.ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.fieldsLock.Unlock()

	w.state.Store(int32(StateIdle))
	w.accepting.Store(true)
	w.publish(&StartedEvent{WorkerID: w.id, At: time.Now()})
	w.logger.Infof("worker=(%s) started", w.id)
	return nil
}

// Submit enqueues a task and returns the Future its Result will be
// delivered on. It fails synchronously with ErrWorkerTerminated when
// the worker is not accepting work, and with ErrMailboxFull when a
// bounded non-blocking mailbox is at capacity. With a bounded blocking
// mailbox, Submit blocks the caller until space is available.
func (w *Worker) Submit(ctx context.Context, t *task.Task) (future.Future, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, gerrors.ErrTaskRequired
	}
	if !w.accepting.Load() {
		return nil, gerrors.ErrWorkerTerminated
	}

	completion := future.NewCompletable()
	if err := w.currentMailbox().Enqueue(NewEnvelope(t, completion)); err != nil {
		return nil, err
	}

	w.process()
	return completion.Future(), nil
}

// Pause halts dequeueing without dropping queued tasks and returns an
// opaque continuation token. The token is single-use: the matching
// Resume call consumes it. A task already mid-execution finishes first.
func (w *Worker) Pause() (string, error) {
	if !w.IsRunning() {
		return "", gerrors.ErrWorkerTerminated
	}
	if !w.paused.CompareAndSwap(false, true) {
		return "", gerrors.ErrWorkerAlreadyPaused
	}

	token := uuid.NewString()
	w.tokenLock.Lock()
	w.resumeToken = token
	w.tokenLock.Unlock()

	w.state.Store(int32(StatePaused))
	w.logger.Infof("worker=(%s) paused", w.id)
	return token, nil
}

// Resume restarts dequeueing after a Pause. The token must match the
// one issued by the pause; it is invalidated on use.
func (w *Worker) Resume(token string) error {
	if !w.IsRunning() {
		return gerrors.ErrWorkerTerminated
	}
	if !w.paused.Load() {
		return gerrors.ErrWorkerNotPaused
	}

	w.tokenLock.Lock()
	if token == "" || token != w.resumeToken {
		w.tokenLock.Unlock()
		return gerrors.ErrInvalidResumeToken
	}
	w.resumeToken = ""
	w.tokenLock.Unlock()

	w.paused.Store(false)
	w.state.Store(int32(StateIdle))
	w.logger.Infof("worker=(%s) resumed", w.id)
	w.process()
	return nil
}

// Stop terminates the worker immediately. The in-flight task, if any,
// is abandoned without a Result, and queued tasks are drained without
// processing: their futures fail with ErrWorkerTerminated. The context
// bounds how long Stop waits for the processing goroutine to wind down.
func (w *Worker) Stop(ctx context.Context) error {
	if w.State() == StateTerminated {
		return nil
	}

	w.accepting.Store(false)
	w.halted.Store(true)
	w.cancelContext()

	if err := w.awaitQuiescence(ctx); err != nil {
		return err
	}

	w.state.Store(int32(StateTerminated))
	w.drainUnprocessed()
	w.publish(&ExitedEvent{WorkerID: w.id, At: time.Now()})
	w.started.Store(false)
	w.logger.Infof("worker=(%s) stopped", w.id)
	return nil
}

// ShutdownGracefully stops accepting new submissions, finishes every
// queued and in-flight task, then terminates. A paused worker is
// unpaused so the drain can proceed. When the call returns without
// error, every accepted task has produced a Result.
func (w *Worker) ShutdownGracefully(ctx context.Context) error {
	if w.State() == StateTerminated {
		return nil
	}

	w.accepting.Store(false)
	if w.paused.CompareAndSwap(true, false) {
		w.tokenLock.Lock()
		w.resumeToken = ""
		w.tokenLock.Unlock()
	}
	w.process()

	drainTicker := ticker.New(quiescencePollInterval)
	drainTicker.Start()
	defer drainTicker.Stop()

	mailbox := w.currentMailbox()
	for !mailbox.IsEmpty() || w.processing.Load() != idle {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-drainTicker.Ticks:
			w.process()
		}
	}

	// a fatal fault during the drain already terminated the worker
	if w.State() == StateTerminated {
		return nil
	}

	w.halted.Store(true)
	w.cancelContext()
	w.state.Store(int32(StateTerminated))
	mailbox.Dispose()
	w.publish(&ExitedEvent{WorkerID: w.id, At: time.Now()})
	w.started.Store(false)
	w.logger.Infof("worker=(%s) shutdown gracefully", w.id)
	return nil
}

// Restart gives the worker a fresh mailbox and state and makes it
// accept work again. It is the supervisor's recovery primitive; queued
// tasks of the previous incarnation have already been drained during
// termination.
func (w *Worker) Restart(ctx context.Context) error {
	w.accepting.Store(false)
	w.halted.Store(true)
	w.cancelContext()

	if err := w.awaitQuiescence(ctx); err != nil {
		return err
	}
	w.drainUnprocessed()

	w.fieldsLock.Lock()
	w.mailbox = w.mailboxProvider()
	w.ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.fieldsLock.Unlock()

	w.tokenLock.Lock()
	w.resumeToken = ""
	w.tokenLock.Unlock()

	w.paused.Store(false)
	w.halted.Store(false)
	w.processing.Store(idle)
	w.state.Store(int32(StateIdle))
	w.started.Store(true)
	w.accepting.Store(true)

	w.publish(&RestartedEvent{WorkerID: w.id, At: time.Now()})
	w.logger.Infof("worker=(%s) restarted", w.id)
	return nil
}

// process extracts every envelope from the mailbox and runs the handler
// on it. Only one processing loop runs at a time: the idle -> busy flag
// transition elects it, and submissions arriving while a loop is
// running are picked up by the empty-check before it exits. An empty
// mailbox never elects a loop, so callers may invoke process freely
// while polling for quiescence.
func (w *Worker) process() {
	if !w.started.Load() || w.paused.Load() || w.halted.Load() {
		return
	}
	if w.currentMailbox().IsEmpty() {
		return
	}
	if !w.processing.CompareAndSwap(idle, busy) {
		return
	}

	go func() {
		for {
			if env := w.currentMailbox().Dequeue(); env != nil {
				w.handle(env)
			}

			// if no more messages, change busy state to idle
			w.processing.Store(idle)

			if w.paused.Load() || w.halted.Load() {
				return
			}

			// Check if new envelopes were added in the meantime and
			// restart processing
			if !w.currentMailbox().IsEmpty() && w.processing.CompareAndSwap(idle, busy) {
				continue
			}
			return
		}
	}()
}

// handle executes a single envelope and routes its outcome: the Result
// to the submitter's future, the lifecycle event to the stream, and the
// Result again to the observer callback when one is registered.
func (w *Worker) handle(env *Envelope) {
	t := env.Task()
	w.state.Store(int32(StateBusy))
	w.inFlight.Inc()
	value, err := w.execute(t)
	w.inFlight.Dec()

	if w.halted.Load() {
		// terminated mid-execution: the task is abandoned, no Result
		return
	}

	var result *task.Result
	if err != nil {
		result = task.NewFailureResult(t.ID(), err)
	} else {
		result = task.NewResult(t.ID(), value)
	}

	env.complete(result)
	w.processedCount.Inc()
	if w.observer != nil {
		w.observer(result)
	}

	switch {
	case err == nil:
		w.publish(&CompletedEvent{WorkerID: w.id, TaskID: t.ID(), At: time.Now()})
		w.settle()
	case gerrors.IsFatal(err):
		w.logger.Errorf("worker=(%s) fatal fault: %v", w.id, err)
		w.terminateWithFault(err)
	default:
		w.logger.Warnf("worker=(%s) task=(%s) failed: %v", w.id, t.ID(), err)
		w.publish(&ErrorEvent{WorkerID: w.id, TaskID: t.ID(), Err: err, At: time.Now()})
		w.settle()
	}
}

// settle parks the worker state after a task: Idle normally, Paused
// when a pause request landed while the task was executing. The
// re-check after the store closes the window where Pause runs between
// the load and the store.
func (w *Worker) settle() {
	w.state.Store(int32(StateIdle))
	if w.paused.Load() {
		w.state.Store(int32(StatePaused))
	}
}

// execute runs the handler with panic recovery. A recovered panic is
// reported as a PanicError failure; it does not kill the worker.
func (w *Worker) execute(t *task.Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = gerrors.NewPanicError(fmt.Errorf("%v", r))
		}
	}()
	w.fieldsLock.RLock()
	ctx := w.ctx
	w.fieldsLock.RUnlock()
	return w.handler(ctx, t)
}

// terminateWithFault terminates the worker after an unrecoverable
// fault. Remaining queued tasks fail with ErrWorkerTerminated, and the
// fault travels to the supervisor in the exit event. Runs on the
// processing goroutine, so the loop is already quiesced by the halted
// flag.
func (w *Worker) terminateWithFault(fault error) {
	w.accepting.Store(false)
	w.halted.Store(true)
	w.cancelContext()
	w.state.Store(int32(StateTerminated))
	w.drainUnprocessed()
	w.publish(&ExitedEvent{WorkerID: w.id, Reason: fault, At: time.Now()})
	w.started.Store(false)
}

// awaitQuiescence blocks until the processing loop is idle or ctx
// expires. Termination paths need it before touching the mailbox from
// outside the consumer goroutine.
func (w *Worker) awaitQuiescence(ctx context.Context) error {
	for w.processing.Load() != idle {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			pause.For(quiescencePollInterval)
		}
	}
	return nil
}

// drainUnprocessed empties the mailbox without executing anything and
// fails each pending future so no submitter blocks forever.
func (w *Worker) drainUnprocessed() {
	mailbox := w.currentMailbox()
	for {
		env := mailbox.Dequeue()
		if env == nil {
			break
		}
		env.fail(gerrors.ErrWorkerTerminated)
	}
	mailbox.Dispose()
}

func (w *Worker) currentMailbox() Mailbox {
	w.fieldsLock.RLock()
	mailbox := w.mailbox
	w.fieldsLock.RUnlock()
	return mailbox
}

func (w *Worker) cancelContext() {
	w.fieldsLock.RLock()
	cancel := w.cancel
	w.fieldsLock.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (w *Worker) publish(event any) {
	if w.eventsStream != nil {
		w.eventsStream.Publish(Topic, event)
	}
}
