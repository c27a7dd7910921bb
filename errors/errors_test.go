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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicError(t *testing.T) {
	cause := errors.New("boom")
	err := NewPanicError(cause)
	assert.Equal(t, "panic: boom", err.Error())
	require.ErrorIs(t, err, cause)

	var panicErr *PanicError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &panicErr)
}

func TestFatalError(t *testing.T) {
	cause := errors.New("disk gone")
	err := NewFatalError(cause)
	assert.Equal(t, "fatal: disk gone", err.Error())
	require.ErrorIs(t, err, cause)
}

func TestIsFatal(t *testing.T) {
	cause := errors.New("boom")
	assert.True(t, IsFatal(NewFatalError(cause)))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", NewFatalError(cause))))
	assert.False(t, IsFatal(cause))
	assert.False(t, IsFatal(NewPanicError(cause)))
	assert.False(t, IsFatal(nil))
}
