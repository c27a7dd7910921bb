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

package pool

import "fmt"

// SelectionPolicy decides which worker a submission is routed to.
type SelectionPolicy int

const (
	// RoundRobin cycles deterministically through worker indices: with n
	// workers, n submissions give each worker exactly one task.
	RoundRobin SelectionPolicy = iota
	// LeastLoaded picks the worker with the smallest mailbox depth,
	// breaking ties by the lowest worker index.
	LeastLoaded
)

// String returns the string representation of a SelectionPolicy.
func (p SelectionPolicy) String() string {
	switch p {
	case RoundRobin:
		return "RoundRobin"
	case LeastLoaded:
		return "LeastLoaded"
	default:
		return fmt.Sprintf("SelectionPolicy(%d)", int(p))
	}
}

// DrainPolicy decides how workers removed by a downsizing Resize are
// retired.
type DrainPolicy int

const (
	// DrainGracefully finishes every queued task of a removed worker
	// before it terminates.
	DrainGracefully DrainPolicy = iota
	// DrainImmediately stops removed workers at once, abandoning their
	// queued tasks.
	DrainImmediately
)

// String returns the string representation of a DrainPolicy.
func (p DrainPolicy) String() string {
	switch p {
	case DrainGracefully:
		return "DrainGracefully"
	case DrainImmediately:
		return "DrainImmediately"
	default:
		return fmt.Sprintf("DrainPolicy(%d)", int(p))
	}
}
