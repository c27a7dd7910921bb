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

package task

// Result represents the outcome of an accepted Task. Exactly one
// Result is produced per accepted task.
//
// If the task succeeds, Success returns the value and Failure returns
// nil. If the task fails, Failure returns the error and Success returns
// nil.
type Result struct {
	taskID  string
	success any
	failure error
}

// NewResult creates a successful Result for the given task.
func NewResult(taskID string, value any) *Result {
	return &Result{taskID: taskID, success: value}
}

// NewFailureResult creates a failed Result for the given task.
func NewFailureResult(taskID string, err error) *Result {
	return &Result{taskID: taskID, failure: err}
}

// TaskID returns the identifier of the task this result belongs to.
func (r *Result) TaskID() string {
	return r.taskID
}

// Success returns the successful value of the task, if available.
//
// If the task failed, this method returns nil. Call Failure to check
// for errors.
func (r *Result) Success() any {
	return r.success
}

// Failure returns the error encountered during task execution, if any.
//
// If the task completed successfully, this method returns nil. Call
// Success to retrieve the value in case of success.
func (r *Result) Failure() error {
	return r.failure
}
