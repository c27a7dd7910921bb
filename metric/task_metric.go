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
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/taskmill/taskmill/eventstream"
	"github.com/taskmill/taskmill/worker"
)

// TaskMetric defines the per-task lifecycle metrics
type TaskMetric struct {
	completedCount metric.Int64Counter
	failedCount    metric.Int64Counter
	restartsCount  metric.Int64Counter
}

// NewTaskMetric creates an instance of TaskMetric
func NewTaskMetric(meter metric.Meter) (*TaskMetric, error) {
	taskMetric := new(TaskMetric)
	var err error
	// set the completed count instrument
	if taskMetric.completedCount, err = meter.Int64Counter(
		"tasks_completed_count",
		metric.WithDescription("Total number of tasks completed successfully"),
	); err != nil {
		return nil, fmt.Errorf("failed to create completedCount instrument, %v", err)
	}
	// set the failed count instrument
	if taskMetric.failedCount, err = meter.Int64Counter(
		"tasks_failed_count",
		metric.WithDescription("Total number of tasks that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failedCount instrument, %v", err)
	}
	// set the restarts count instrument
	if taskMetric.restartsCount, err = meter.Int64Counter(
		"worker_restarts_count",
		metric.WithDescription("Total number of worker restarts"),
	); err != nil {
		return nil, fmt.Errorf("failed to create restartsCount instrument, %v", err)
	}
	return taskMetric, nil
}

// CompletedCount returns the completed tasks counter
func (x *TaskMetric) CompletedCount() metric.Int64Counter {
	return x.completedCount
}

// FailedCount returns the failed tasks counter
func (x *TaskMetric) FailedCount() metric.Int64Counter {
	return x.failedCount
}

// RestartsCount returns the worker restarts counter
func (x *TaskMetric) RestartsCount() metric.Int64Counter {
	return x.restartsCount
}

// Recorder consumes worker lifecycle events off the event stream and
// feeds the task counters.
type Recorder struct {
	taskMetric *TaskMetric
	stream     eventstream.Stream
	sub        eventstream.Subscriber
	wg         sync.WaitGroup
}

// NewRecorder creates a Recorder for the given meter and event stream.
// Call Start to begin recording and Stop to detach from the stream.
func NewRecorder(meter metric.Meter, stream eventstream.Stream) (*Recorder, error) {
	taskMetric, err := NewTaskMetric(meter)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		taskMetric: taskMetric,
		stream:     stream,
	}, nil
}

// Start subscribes to the worker topic and begins counting events.
func (r *Recorder) Start() {
	r.sub = r.stream.AddSubscriber()
	r.stream.Subscribe(r.sub, worker.Topic)
	r.wg.Add(1)
	go r.record()
}

// Stop detaches the recorder from the stream and waits for the recording
// loop to drain.
func (r *Recorder) Stop() {
	r.stream.RemoveSubscriber(r.sub)
	r.wg.Wait()
}

func (r *Recorder) record() {
	defer r.wg.Done()
	ctx := context.Background()
	for {
		message, ok := r.sub.Next()
		if !ok {
			return
		}
		switch event := message.Payload().(type) {
		case *worker.CompletedEvent:
			r.taskMetric.completedCount.Add(ctx, 1,
				metric.WithAttributes(attribute.String("worker", event.WorkerID)))
		case *worker.ErrorEvent:
			r.taskMetric.failedCount.Add(ctx, 1,
				metric.WithAttributes(attribute.String("worker", event.WorkerID)))
		case *worker.RestartedEvent:
			r.taskMetric.restartsCount.Add(ctx, 1,
				metric.WithAttributes(attribute.String("worker", event.WorkerID)))
		}
	}
}
