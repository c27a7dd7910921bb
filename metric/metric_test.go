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

package metric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"

	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/log"
	"github.com/taskmill/taskmill/pool"
	"github.com/taskmill/taskmill/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMetric(t *testing.T) {
	ctx := context.Background()
	meter := noop.NewMeterProvider().Meter("test")

	t.Run("With pool instruments", func(t *testing.T) {
		poolMetric, err := NewPoolMetric(meter)
		require.NoError(t, err)
		assert.NotNil(t, poolMetric.WorkersCount())
		assert.NotNil(t, poolMetric.MailboxSize())
		assert.NotNil(t, poolMetric.ProcessedCount())
	})
	t.Run("With task instruments", func(t *testing.T) {
		taskMetric, err := NewTaskMetric(meter)
		require.NoError(t, err)
		assert.NotNil(t, taskMetric.CompletedCount())
		assert.NotNil(t, taskMetric.FailedCount())
		assert.NotNil(t, taskMetric.RestartsCount())
	})
	t.Run("With a registered pool", func(t *testing.T) {
		p, err := pool.New("observed", func(_ context.Context, tk *task.Task) (any, error) {
			return tk.Payload(), nil
		}, 2, pool.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, p.Start(ctx))

		registration, err := Register(meter, p)
		require.NoError(t, err)
		require.NoError(t, registration.Unregister())

		require.NoError(t, p.Shutdown(ctx))
	})
	t.Run("With a recording stream consumer", func(t *testing.T) {
		stream := eventstream.New()
		recorder, err := NewRecorder(meter, stream)
		require.NoError(t, err)
		recorder.Start()

		p, err := pool.New("recorded", func(_ context.Context, tk *task.Task) (any, error) {
			return tk.Payload(), nil
		}, 2,
			pool.WithLogger(log.DiscardLogger),
			pool.WithEventStream(stream))
		require.NoError(t, err)
		require.NoError(t, p.Start(ctx))

		f, err := p.Submit(ctx, task.New("hello"))
		require.NoError(t, err)
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		result, err := f.Await(waitCtx)
		cancel()
		require.NoError(t, err)
		assert.Equal(t, "hello", result.Success())

		require.NoError(t, p.Shutdown(ctx))
		recorder.Stop()
		stream.Close()
	})
}
