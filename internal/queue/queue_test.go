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

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	t.Run("With FIFO ordering", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 100; i++ {
			require.True(t, q.Push(i))
		}
		assert.Equal(t, 100, q.Len())
		for i := 0; i < 100; i++ {
			item, ok := q.Pop()
			require.True(t, ok)
			assert.Equal(t, i, item)
		}
		assert.True(t, q.IsEmpty())
	})
	t.Run("With Pop on an empty queue", func(t *testing.T) {
		q := New[string]()
		_, ok := q.Pop()
		assert.False(t, ok)
	})
	t.Run("With Wait returning a queued item immediately", func(t *testing.T) {
		q := New[string]()
		q.Push("ready")
		item, ok := q.Wait()
		require.True(t, ok)
		assert.Equal(t, "ready", item)
	})
	t.Run("With Wait blocking until a push", func(t *testing.T) {
		q := New[string]()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, ok := q.Wait()
			assert.True(t, ok)
			assert.Equal(t, "delivered", item)
		}()

		q.Push("delivered")
		wg.Wait()
	})
	t.Run("With Close releasing blocked waiters", func(t *testing.T) {
		q := New[int]()

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok := q.Wait()
				assert.False(t, ok)
			}()
		}

		q.Close()
		wg.Wait()
		assert.True(t, q.IsClosed())
	})
	t.Run("With pushes after Close dropped", func(t *testing.T) {
		q := New[int]()
		q.Close()
		assert.False(t, q.Push(1))
		assert.Zero(t, q.Len())
		_, ok := q.Pop()
		assert.False(t, ok)
	})
	t.Run("With growth beyond the initial capacity", func(t *testing.T) {
		q := New[int]()
		const n = 10_000
		for i := 0; i < n; i++ {
			require.True(t, q.Push(i))
		}
		for i := 0; i < n; i++ {
			item, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, i, item)
		}
	})
	t.Run("With concurrent producers and one consumer", func(t *testing.T) {
		q := New[int]()
		const producers, perProducer = 8, 200

		var wg sync.WaitGroup
		for i := 0; i < producers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perProducer; j++ {
					q.Push(j)
				}
			}()
		}

		received := 0
		done := make(chan struct{})
		go func() {
			defer close(done)
			for received < producers*perProducer {
				if _, ok := q.Wait(); ok {
					received++
				}
			}
		}()

		wg.Wait()
		<-done
		assert.Equal(t, producers*perProducer, received)
	})
}
