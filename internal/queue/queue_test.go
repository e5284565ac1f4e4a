package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := New[string]()
	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push("a.dem")
	q.Push("b.dem", "c.dem")
	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "a.dem", head)
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a.dem", "b.dem", "c.dem"} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, q.Len())
}

func TestWrapAroundAndGrow(t *testing.T) {
	q := New[int]()
	next, want := 0, 0
	// Keep the ring partly full so pushes wrap past the end before it grows.
	for round := 0; round < 5; round++ {
		for i := 0; i < 6; i++ {
			q.Push(next)
			next++
		}
		for i := 0; i < 4; i++ {
			got, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, want, got)
			want++
		}
	}
	items := q.Items()
	require.Len(t, items, next-want)
	for i, v := range items {
		assert.Equal(t, want+i, v)
	}
}

func TestItemsIsACopy(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	items := q.Items()
	items[0] = 99
	assert.Equal(t, []int{1, 2, 3}, q.Items())

	q.Clear()
	assert.Empty(t, q.Items())
	_, ok := q.Peek()
	assert.False(t, ok)

	q.Push(7)
	got, _ := q.Pop()
	assert.Equal(t, 7, got, "usable after Clear")
}

func TestConcurrentPushPop(t *testing.T) {
	q := New[string]()
	const writers, each = 4, 250

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Push(fmt.Sprintf("%d-%d.dem", w, i))
			}
		}(w)
	}

	seen := make(map[string]bool)
	var mu sync.Mutex
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writers*each; i++ {
				if v, ok := q.Pop(); ok {
					mu.Lock()
					seen[v] = true
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	for _, v := range q.Items() {
		seen[v] = true
	}
	assert.Len(t, seen, writers*each)
}

func TestDrain(t *testing.T) {
	q := New[int]()
	assert.True(t, q.Empty())
	assert.Empty(t, q.Drain())

	q.Push(1, 2)
	q.Pop()
	q.Push(3, 4)
	assert.Equal(t, []int{2, 3, 4}, q.Drain())
	assert.True(t, q.Empty())
}
