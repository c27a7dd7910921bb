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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	gerrors "github.com/taskmill/taskmill/errors"
	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/task"
	"github.com/taskmill/taskmill/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// transientError is a typed error used to exercise directive rules.
type transientError struct{}

func (transientError) Error() string { return "transient" }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fatalWorker builds a started worker whose handler returns a fatal
// fault while failing holds true.
func fatalWorker(t *testing.T, ctx context.Context, stream eventstream.Stream, id string, failing *atomic.Bool) *worker.Worker {
	t.Helper()
	w, err := worker.New(id, func(_ context.Context, tk *task.Task) (any, error) {
		if failing.Load() {
			return nil, gerrors.NewFatalError(errors.New("isolation fault"))
		}
		return tk.Payload(), nil
	},
		worker.WithLogger(log.DiscardLogger),
		worker.WithEventStream(stream))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	return w
}

// tripFault submits one task to a fatally failing worker and waits for
// the worker to terminate.
func tripFault(t *testing.T, ctx context.Context, w *worker.Worker) {
	t.Helper()
	require.Eventually(t, func() bool {
		return w.IsRunning()
	}, time.Second, time.Millisecond)
	_, err := w.Submit(ctx, task.New("doomed"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return w.State() == worker.StateTerminated
	}, time.Second, time.Millisecond)
}

func TestSupervisor(t *testing.T) {
	ctx := context.Background()

	t.Run("With invalid construction", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)
	})
	t.Run("With duplicate supervision", func(t *testing.T) {
		stream := eventstream.New()
		s, err := New(stream, WithLogger(log.DiscardLogger))
		require.NoError(t, err)

		failing := atomic.NewBool(false)
		w := fatalWorker(t, ctx, stream, "dup", failing)
		require.NoError(t, s.Supervise(w))
		require.ErrorIs(t, s.Supervise(w), gerrors.ErrAlreadySupervised)

		require.NoError(t, w.Stop(ctx))
		stream.Close()
	})
	t.Run("With restart after a fatal fault", func(t *testing.T) {
		stream := eventstream.New()
		s, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithRestartPolicy(3, time.Minute))
		require.NoError(t, err)

		failing := atomic.NewBool(true)
		w := fatalWorker(t, ctx, stream, "restartable", failing)
		require.NoError(t, s.Supervise(w))
		require.NoError(t, s.Start(ctx))

		// the fault terminates the worker; the supervisor brings it back
		tripFault(t, ctx, w)
		require.Eventually(t, func() bool {
			return w.IsRunning()
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, s.RestartCount("restartable"))

		// the restarted worker processes again
		failing.Store(false)
		f, err := w.Submit(ctx, task.New("hello"))
		require.NoError(t, err)
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		result, err := f.Await(waitCtx)
		cancel()
		require.NoError(t, err)
		assert.Equal(t, "hello", result.Success())

		require.NoError(t, s.Stop(ctx))
		require.NoError(t, w.Stop(ctx))
		stream.Close()
	})
	t.Run("With restart budget exhaustion", func(t *testing.T) {
		stream := eventstream.New()
		escalations := stream.AddSubscriber()
		stream.Subscribe(escalations, Topic)

		s, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithRestartPolicy(2, time.Minute))
		require.NoError(t, err)

		failing := atomic.NewBool(true)
		w := fatalWorker(t, ctx, stream, "hopeless", failing)
		require.NoError(t, s.Supervise(w))
		require.NoError(t, s.Start(ctx))

		// two faults consume the budget, the third exceeds it
		for i := 0; i < 3; i++ {
			tripFault(t, ctx, w)
			if i < 2 {
				require.Eventually(t, func() bool {
					return w.IsRunning()
				}, 2*time.Second, 5*time.Millisecond)
			}
		}

		var escalated *EscalatedEvent
		require.Eventually(t, func() bool {
			for escalations.Pending() > 0 {
				message, ok := escalations.Next()
				if !ok {
					return false
				}
				if event, matched := message.Payload().(*EscalatedEvent); matched {
					escalated = event
				}
			}
			return escalated != nil
		}, 2*time.Second, 5*time.Millisecond)

		require.ErrorIs(t, escalated.Err, gerrors.ErrRestartBudgetExceeded)
		assert.Equal(t, "hopeless", escalated.EntityID)
		assert.True(t, s.IsPermanentlyFailed("hopeless"))
		assert.Equal(t, 2, s.RestartCount("hopeless"))

		// a permanently failed entity is never restarted again
		assert.Equal(t, worker.StateTerminated, w.State())

		require.NoError(t, s.Stop(ctx))
		stream.Close()
	})
	t.Run("With failures spaced beyond the window", func(t *testing.T) {
		clock := newFakeClock()
		stream := eventstream.New()
		s, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithRestartPolicy(1, time.Minute),
			WithClock(clock.Now))
		require.NoError(t, err)

		failing := atomic.NewBool(true)
		w := fatalWorker(t, ctx, stream, "spaced", failing)
		require.NoError(t, s.Supervise(w))
		require.NoError(t, s.Start(ctx))

		tripFault(t, ctx, w)
		require.Eventually(t, func() bool {
			return w.IsRunning()
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, s.RestartCount("spaced"))

		// beyond the window the counter has drained and the budget is
		// never exceeded
		clock.Advance(2 * time.Minute)
		assert.Zero(t, s.RestartCount("spaced"))

		tripFault(t, ctx, w)
		require.Eventually(t, func() bool {
			return w.IsRunning()
		}, 2*time.Second, 5*time.Millisecond)
		assert.False(t, s.IsPermanentlyFailed("spaced"))
		assert.Equal(t, 1, s.RestartCount("spaced"))

		require.NoError(t, s.Stop(ctx))
		require.NoError(t, w.Stop(ctx))
		stream.Close()
	})
	t.Run("With a stop directive", func(t *testing.T) {
		stream := eventstream.New()
		s, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithDirective(transientError{}, StopDirective))
		require.NoError(t, err)

		w, err := worker.New("stoppable", func(_ context.Context, _ *task.Task) (any, error) {
			return nil, transientError{}
		},
			worker.WithLogger(log.DiscardLogger),
			worker.WithEventStream(stream))
		require.NoError(t, err)
		require.NoError(t, w.Start(ctx))
		require.NoError(t, s.Supervise(w))
		require.NoError(t, s.Start(ctx))

		_, err = w.Submit(ctx, task.New("x"))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return w.State() == worker.StateTerminated
		}, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, s.Stop(ctx))
		stream.Close()
	})
	t.Run("With an escalate directive", func(t *testing.T) {
		stream := eventstream.New()
		escalations := stream.AddSubscriber()
		stream.Subscribe(escalations, Topic)

		s, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithAnyErrorDirective(EscalateDirective))
		require.NoError(t, err)

		boom := errors.New("boom")
		w, err := worker.New("escalated", func(_ context.Context, _ *task.Task) (any, error) {
			return nil, boom
		},
			worker.WithLogger(log.DiscardLogger),
			worker.WithEventStream(stream))
		require.NoError(t, err)
		require.NoError(t, w.Start(ctx))
		require.NoError(t, s.Supervise(w))
		require.NoError(t, s.Start(ctx))

		_, err = w.Submit(ctx, task.New("x"))
		require.NoError(t, err)

		message, ok := escalations.Next()
		require.True(t, ok)
		event, matched := message.Payload().(*EscalatedEvent)
		require.True(t, matched)
		assert.Equal(t, "escalated", event.EntityID)
		require.ErrorIs(t, event.Err, boom)

		// the worker itself survived the per-task failure
		assert.True(t, w.IsRunning())

		require.NoError(t, s.Stop(ctx))
		require.NoError(t, w.Stop(ctx))
		stream.Close()
	})
	t.Run("With a requested stop never restarting", func(t *testing.T) {
		stream := eventstream.New()
		s, err := New(stream, WithLogger(log.DiscardLogger))
		require.NoError(t, err)

		failing := atomic.NewBool(false)
		w := fatalWorker(t, ctx, stream, "retired", failing)
		require.NoError(t, s.Supervise(w))
		require.NoError(t, s.Start(ctx))

		require.NoError(t, w.ShutdownGracefully(ctx))
		// give the supervisor a chance to mishandle the exit event
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, worker.StateTerminated, w.State())
		assert.Zero(t, s.RestartCount("retired"))

		require.NoError(t, s.Stop(ctx))
		stream.Close()
	})
	t.Run("With nested supervisors", func(t *testing.T) {
		stream := eventstream.New()

		// the child gives up immediately, the parent listens on the
		// escalation topic and restarts in its stead
		child, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithRestartPolicy(0, time.Minute))
		require.NoError(t, err)
		parent, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithTopics(Topic),
			WithAnyErrorDirective(RestartDirective),
			WithRestartPolicy(5, time.Minute))
		require.NoError(t, err)

		failing := atomic.NewBool(true)
		w := fatalWorker(t, ctx, stream, "nested", failing)
		require.NoError(t, child.Supervise(w))
		require.NoError(t, parent.Supervise(w))
		require.NoError(t, child.Start(ctx))
		require.NoError(t, parent.Start(ctx))

		tripFault(t, ctx, w)
		failing.Store(false)

		require.Eventually(t, func() bool {
			return w.IsRunning()
		}, 2*time.Second, 5*time.Millisecond)
		assert.True(t, child.IsPermanentlyFailed("nested"))
		assert.False(t, parent.IsPermanentlyFailed("nested"))

		require.NoError(t, parent.Stop(ctx))
		require.NoError(t, child.Stop(ctx))
		require.NoError(t, w.Stop(ctx))
		stream.Close()
	})
	t.Run("With exponential backoff delay", func(t *testing.T) {
		stream := eventstream.New()
		s, err := New(stream,
			WithLogger(log.DiscardLogger),
			WithBackoff(10*time.Millisecond, 40*time.Millisecond))
		require.NoError(t, err)

		assert.Equal(t, 10*time.Millisecond, s.backoffDelay(0))
		assert.Equal(t, 20*time.Millisecond, s.backoffDelay(1))
		assert.Equal(t, 40*time.Millisecond, s.backoffDelay(2))
		assert.Equal(t, 40*time.Millisecond, s.backoffDelay(3))
		stream.Close()
	})
}
