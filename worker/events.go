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

package worker

import "time"

// Topic is the event stream topic workers publish their lifecycle
// events to. Supervisors subscribe to it; this is the only channel
// through which failure information crosses component boundaries.
const Topic = "workers"

// StartedEvent is published when a worker begins accepting work.
type StartedEvent struct {
	WorkerID string
	At       time.Time
}

// CompletedEvent is published after a task produced a successful Result.
type CompletedEvent struct {
	WorkerID string
	TaskID   string
	At       time.Time
}

// ErrorEvent is published when a task execution failed. The worker
// keeps running; the failure is also reported in the task's Result.
type ErrorEvent struct {
	WorkerID string
	TaskID   string
	Err      error
	At       time.Time
}

// ExitedEvent is published when a worker reaches Terminated. A nil
// Reason means the termination was requested (stop or graceful
// shutdown) and must not trigger a restart; a non-nil Reason carries
// the fatal fault that killed the worker.
type ExitedEvent struct {
	WorkerID string
	Reason   error
	At       time.Time
}

// RestartedEvent is published when a supervisor restarted a worker with
// a fresh mailbox and state.
type RestartedEvent struct {
	WorkerID string
	At       time.Time
}
