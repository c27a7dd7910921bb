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

// Package task defines the unit of work submitted to the runtime and
// the result produced for it. A Task carries an opaque payload so the
// runtime never needs to know its shape; the worker's handler does.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is an immutable unit of work. All fields are fixed at creation
// time; the runtime routes the task but never mutates it.
type Task struct {
	id        string
	payload   any
	priority  int
	createdAt time.Time
}

// Option configures a Task at creation time.
type Option func(*Task)

// WithID overrides the generated task identifier.
func WithID(id string) Option {
	return func(t *Task) { t.id = id }
}

// WithPriority sets the task priority. Higher values are more urgent.
// The default priority is zero.
func WithPriority(priority int) Option {
	return func(t *Task) { t.priority = priority }
}

// New creates a Task wrapping the given payload. A unique identifier is
// generated unless WithID is supplied.
func New(payload any, opts ...Option) *Task {
	t := &Task{
		id:        uuid.NewString(),
		payload:   payload,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the unique task identifier.
func (t *Task) ID() string {
	return t.id
}

// Payload returns the opaque input data carried by the task.
func (t *Task) Payload() any {
	return t.payload
}

// Priority returns the task priority. Higher values are more urgent.
func (t *Task) Priority() int {
	return t.priority
}

// CreatedAt returns the task creation time.
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}
