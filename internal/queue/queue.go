// Package queue holds the playlist of demos waiting to be played.
package queue

import "sync"

const minCap = 8

// Queue is a thread-safe FIFO over a growable ring buffer.
type Queue[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int
	n    int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// grow makes room for at least need more items, unwrapping the ring.
func (q *Queue[T]) grow(need int) {
	if q.n+need <= len(q.buf) {
		return
	}
	size := max(len(q.buf)*2, minCap)
	for size < q.n+need {
		size *= 2
	}
	buf := make([]T, size)
	q.copyTo(buf)
	q.buf, q.head = buf, 0
}

func (q *Queue[T]) copyTo(dst []T) {
	if q.n == 0 {
		return
	}
	end := q.head + q.n
	if end <= len(q.buf) {
		copy(dst, q.buf[q.head:end])
		return
	}
	k := copy(dst, q.buf[q.head:])
	copy(dst[k:], q.buf[:end-len(q.buf)])
}

// Push appends items in order.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.grow(len(items))
	for _, it := range items {
		q.buf[(q.head+q.n)%len(q.buf)] = it
		q.n++
	}
}

// Pop removes the oldest item. ok is false on an empty queue.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return item, false
	}
	var zero T
	item, q.buf[q.head] = q.buf[q.head], zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	if q.n == 0 {
		q.head = 0
	}
	return item, true
}

func (q *Queue[T]) Peek() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return item, false
	}
	return q.buf[q.head], true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Clear drops every item and releases the buffer.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf, q.head, q.n = nil, 0, 0
}

// Items returns the queued items oldest first. The slice is a copy.
func (q *Queue[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, q.n)
	q.copyTo(out)
	return out
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Drain removes and returns every item oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, q.n)
	q.copyTo(out)
	q.buf, q.head, q.n = nil, 0, 0
	return out
}
