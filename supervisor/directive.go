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

import "reflect"

// Strategy represents the supervision strategy applied when a managed
// entity fails.
type Strategy int

const (
	// OneForOneStrategy applies the directive only to the failing
	// entity. Siblings continue running unaffected.
	OneForOneStrategy Strategy = iota

	// OneForAllStrategy applies a Restart directive to every managed
	// entity when any one of them fails. Appropriate when the entities
	// are interdependent and must share a consistent state.
	OneForAllStrategy
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	switch s {
	case OneForOneStrategy:
		return "OneForOne"
	case OneForAllStrategy:
		return "OneForAll"
	default:
		return ""
	}
}

// Directive defines the action a supervisor takes when a managed
// entity signals a failure.
type Directive int

const (
	// StopDirective stops the failing entity. Used when a failure is
	// deemed irrecoverable.
	StopDirective Directive = iota
	// ResumeDirective leaves the entity running. Used for transient,
	// per-task failures the entity already recovered from locally.
	ResumeDirective
	// RestartDirective restarts the failing entity with fresh state,
	// subject to the restart budget and backoff.
	RestartDirective
	// EscalateDirective hands the failure to the next supervisor level
	// by publishing it on the supervisor topic.
	EscalateDirective
)

// String returns the string representation of the directive.
func (d Directive) String() string {
	switch d {
	case StopDirective:
		return "Stop"
	case ResumeDirective:
		return "Resume"
	case RestartDirective:
		return "Restart"
	case EscalateDirective:
		return "Escalate"
	default:
		return ""
	}
}

// errorType returns the string representation of an error's concrete
// type using reflection. Directive rules are keyed by it.
func errorType(err error) string {
	if err == nil {
		return "nil"
	}

	rtype := reflect.TypeOf(err)
	if rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}

	return rtype.String()
}
