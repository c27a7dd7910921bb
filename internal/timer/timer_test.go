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

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	t.Run("With a created timer being stopped", func(t *testing.T) {
		tm := New(time.Hour)
		assert.Equal(t, StateStopped, tm.State())
		select {
		case <-tm.C():
			t.Fatal("a stopped timer must not fire")
		case <-time.After(20 * time.Millisecond):
		}
	})
	t.Run("With Start arming the timer once", func(t *testing.T) {
		tm := New(10 * time.Millisecond)
		require.True(t, tm.Start())
		assert.Equal(t, StateRunning, tm.State())
		// a second Start while armed is refused
		assert.False(t, tm.Start())

		select {
		case <-tm.C():
		case <-time.After(time.Second):
			t.Fatal("the timer never fired")
		}
	})
	t.Run("With Stop disarming the timer", func(t *testing.T) {
		tm := New(10 * time.Millisecond)
		require.True(t, tm.Start())
		require.True(t, tm.Stop())
		assert.Equal(t, StateStopped, tm.State())
		assert.False(t, tm.Stop())

		select {
		case <-tm.C():
			t.Fatal("a stopped timer must not fire")
		case <-time.After(50 * time.Millisecond):
		}
	})
	t.Run("With Reset rearming with a new duration", func(t *testing.T) {
		tm := New(time.Hour)
		tm.Reset(10 * time.Millisecond)
		assert.Equal(t, StateRunning, tm.State())

		select {
		case <-tm.C():
		case <-time.After(time.Second):
			t.Fatal("the reset timer never fired")
		}
	})
	t.Run("With restart after expiry", func(t *testing.T) {
		tm := New(5 * time.Millisecond)
		require.True(t, tm.Start())
		<-tm.C()

		require.True(t, tm.Stop())
		require.True(t, tm.Start())
		select {
		case <-tm.C():
		case <-time.After(time.Second):
			t.Fatal("the restarted timer never fired")
		}
	})
}
