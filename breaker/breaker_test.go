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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/taskmill/taskmill/errors"
)

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

// trippedBreaker builds an Open breaker that tripped at the clock's
// current time.
func trippedBreaker(t *testing.T, clock *fakeClock, opts ...Option) *CircuitBreaker {
	t.Helper()
	opts = append([]Option{
		WithFailureThreshold(1),
		WithOpenTimeout(time.Second),
		WithClock(clock.Now),
	}, opts...)
	b := New(opts...)
	b.OnFailure()
	require.Equal(t, Open, b.State())
	return b
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		b := New()
		assert.Equal(t, Closed, b.State())
		assert.True(t, b.TryAllow())
	})
	t.Run("With invalid options rejected", func(t *testing.T) {
		_, err := NewWithValidation(WithFailureThreshold(0))
		require.Error(t, err)
		_, err = NewWithValidation(WithOpenTimeout(-time.Second))
		require.Error(t, err)
		_, err = NewWithValidation(WithWindow(time.Second, 0))
		require.Error(t, err)
	})
	t.Run("With invalid options sanitized", func(t *testing.T) {
		b := New(WithFailureThreshold(-1), WithOpenTimeout(-time.Second))
		assert.Equal(t, Closed, b.State())
		assert.True(t, b.TryAllow())
	})
	t.Run("With the failure threshold tripping the breaker", func(t *testing.T) {
		clock := newFakeClock()
		b := New(
			WithFailureThreshold(3),
			WithOpenTimeout(time.Second),
			WithClock(clock.Now))

		b.OnFailure()
		b.OnFailure()
		assert.Equal(t, Closed, b.State())
		assert.True(t, b.TryAllow())

		b.OnFailure()
		assert.Equal(t, Open, b.State())
		assert.False(t, b.TryAllow())
	})
	t.Run("With successes not counting against the threshold", func(t *testing.T) {
		clock := newFakeClock()
		b := New(
			WithFailureThreshold(3),
			WithClock(clock.Now))

		for i := 0; i < 10; i++ {
			b.OnSuccess()
		}
		b.OnFailure()
		b.OnFailure()
		assert.Equal(t, Closed, b.State())
	})
	t.Run("With the open timeout admitting a single probe", func(t *testing.T) {
		clock := newFakeClock()
		b := trippedBreaker(t, clock)

		assert.False(t, b.TryAllow())

		clock.Advance(2 * time.Second)
		assert.True(t, b.TryAllow())
		assert.Equal(t, HalfOpen, b.State())
		// the probe slot is taken until its outcome is reported
		assert.False(t, b.TryAllow())
	})
	t.Run("With a successful probe closing the breaker", func(t *testing.T) {
		clock := newFakeClock()
		b := trippedBreaker(t, clock)

		clock.Advance(2 * time.Second)
		require.True(t, b.TryAllow())
		b.OnSuccess()
		assert.Equal(t, Closed, b.State())
		assert.True(t, b.TryAllow())
	})
	t.Run("With a failed probe reopening the breaker", func(t *testing.T) {
		clock := newFakeClock()
		b := trippedBreaker(t, clock)

		clock.Advance(2 * time.Second)
		require.True(t, b.TryAllow())
		b.OnFailure()
		assert.Equal(t, Open, b.State())
		assert.False(t, b.TryAllow())

		// the open timeout restarts from the probe failure
		clock.Advance(2 * time.Second)
		assert.True(t, b.TryAllow())
	})
	t.Run("With multiple probe successes required", func(t *testing.T) {
		clock := newFakeClock()
		b := trippedBreaker(t, clock,
			WithProbeSuccesses(2),
			WithHalfOpenMaxCalls(2))

		clock.Advance(2 * time.Second)
		require.True(t, b.TryAllow())
		b.OnSuccess()
		assert.Equal(t, HalfOpen, b.State())

		require.True(t, b.TryAllow())
		b.OnSuccess()
		assert.Equal(t, Closed, b.State())
	})
	t.Run("With Execute recording outcomes", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		b := New(
			WithFailureThreshold(2),
			WithOpenTimeout(time.Second),
			WithClock(clock.Now))

		value, err := b.Execute(ctx, func(context.Context) (any, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", value)

		boom := errors.New("boom")
		failing := func(context.Context) (any, error) { return nil, boom }
		_, err = b.Execute(ctx, failing)
		require.ErrorIs(t, err, boom)
		_, err = b.Execute(ctx, failing)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, Open, b.State())
	})
	t.Run("With Execute rejecting while open", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		b := trippedBreaker(t, clock)

		_, err := b.Execute(ctx, func(context.Context) (any, error) {
			return "unreachable", nil
		})
		require.ErrorIs(t, err, ErrOpen)
	})
	t.Run("With Execute falling back on rejection", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		b := trippedBreaker(t, clock)

		value, err := b.Execute(ctx,
			func(context.Context) (any, error) { return "unreachable", nil },
			func(_ context.Context, cause error) (any, error) {
				require.ErrorIs(t, cause, ErrOpen)
				return "fallback", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "fallback", value)
	})
	t.Run("With Execute recovering a panic", func(t *testing.T) {
		ctx := context.Background()
		b := New()

		_, err := b.Execute(ctx, func(context.Context) (any, error) {
			panic("kaboom")
		})
		var panicErr *gerrors.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Contains(t, err.Error(), "kaboom")
	})
	t.Run("With Execute honoring context expiry", func(t *testing.T) {
		b := New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		done := make(chan struct{})
		_, err := b.Execute(ctx, func(fnCtx context.Context) (any, error) {
			defer close(done)
			<-fnCtx.Done()
			return nil, fnCtx.Err()
		})
		require.ErrorIs(t, err, ErrTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		<-done
	})
	t.Run("With failures outside the window forgotten", func(t *testing.T) {
		clock := newFakeClock()
		b := New(
			WithFailureThreshold(3),
			WithWindow(time.Second, 10),
			WithClock(clock.Now))

		b.OnFailure()
		b.OnFailure()
		clock.Advance(2 * time.Second)
		b.OnFailure()
		assert.Equal(t, Closed, b.State())
	})
	t.Run("With a snapshot of the rolling counts", func(t *testing.T) {
		clock := newFakeClock()
		b := New(
			WithFailureThreshold(10),
			WithClock(clock.Now))

		b.OnSuccess()
		b.OnSuccess()
		b.OnFailure()

		m := b.Snapshot()
		assert.Equal(t, Closed, m.State)
		assert.EqualValues(t, 2, m.Successes)
		assert.EqualValues(t, 1, m.Failures)
		assert.EqualValues(t, 3, m.Total)
		assert.Equal(t, clock.Now(), m.LastFailure)
		assert.NotEmpty(t, m.String())
	})
	t.Run("With state names", func(t *testing.T) {
		assert.Equal(t, "Closed", Closed.String())
		assert.Equal(t, "Open", Open.String())
		assert.Equal(t, "HalfOpen", HalfOpen.String())
	})
}
