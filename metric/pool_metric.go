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

// Package metric exposes OpenTelemetry instruments for the runtime.
package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PoolObserver is the read-only view of a worker pool the instruments
// observe. *pool.Pool satisfies it.
type PoolObserver interface {
	Name() string
	Size() int
	MailboxSize() int64
	ProcessedCount() int64
}

// PoolMetric defines the worker pool metrics
type PoolMetric struct {
	workersCount   metric.Int64ObservableGauge
	mailboxSize    metric.Int64ObservableGauge
	processedCount metric.Int64ObservableCounter
}

// NewPoolMetric creates an instance of PoolMetric
func NewPoolMetric(meter metric.Meter) (*PoolMetric, error) {
	poolMetric := new(PoolMetric)
	var err error
	// set the workers count instrument
	if poolMetric.workersCount, err = meter.Int64ObservableGauge(
		"pool_workers_count",
		metric.WithDescription("Current number of workers in the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create workersCount instrument, %v", err)
	}
	// set the mailbox size instrument
	if poolMetric.mailboxSize, err = meter.Int64ObservableGauge(
		"pool_mailbox_size",
		metric.WithDescription("Number of tasks queued across all workers at a point in time"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mailboxSize instrument, %v", err)
	}
	// set the processed count instrument
	if poolMetric.processedCount, err = meter.Int64ObservableCounter(
		"pool_processed_count",
		metric.WithDescription("Total number of tasks processed by the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create processedCount instrument, %v", err)
	}
	return poolMetric, nil
}

// WorkersCount returns the current number of workers
func (x *PoolMetric) WorkersCount() metric.Int64ObservableGauge {
	return x.workersCount
}

// MailboxSize returns the queued tasks gauge
func (x *PoolMetric) MailboxSize() metric.Int64ObservableGauge {
	return x.mailboxSize
}

// ProcessedCount returns the processed tasks counter
func (x *PoolMetric) ProcessedCount() metric.Int64ObservableCounter {
	return x.processedCount
}

// Register creates the pool instruments on the given meter and registers
// a callback that observes the pool on every collection cycle. The
// returned registration unregisters the callback when closed.
func Register(meter metric.Meter, observed PoolObserver) (metric.Registration, error) {
	poolMetric, err := NewPoolMetric(meter)
	if err != nil {
		return nil, err
	}
	labels := metric.WithAttributes(attribute.String("pool", observed.Name()))
	return meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(poolMetric.workersCount, int64(observed.Size()), labels)
			observer.ObserveInt64(poolMetric.mailboxSize, observed.MailboxSize(), labels)
			observer.ObserveInt64(poolMetric.processedCount, observed.ProcessedCount(), labels)
			return nil
		},
		poolMetric.workersCount,
		poolMetric.mailboxSize,
		poolMetric.processedCount,
	)
}
