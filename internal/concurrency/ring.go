// File: internal/concurrency/ring.go
// Package concurrency implements lock-free ring buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded circular buffer with atomic head/tail, padded to
// prevent false sharing. One producer at a time may Enqueue (callers
// serialize producers); any number of consumers may Dequeue concurrently,
// which is what lets idle workers steal from each other.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/threadlayer/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[*int] = (*RingBuffer[int])(nil)

// RingBuffer is a single-producer, multi-consumer ring of *T.
type RingBuffer[T any] struct {
	data []atomic.Pointer[T]
	mask uint64
	_    cpu.CacheLinePad
	head atomic.Uint64
	_    cpu.CacheLinePad
	tail atomic.Uint64
	_    cpu.CacheLinePad
}

// NewRingBuffer allocates a ring buffer of power-of-two size.
func NewRingBuffer[T any](size uint64) *RingBuffer[T] {
	if size == 0 || size&(size-1) != 0 {
		panic("size must be power of two")
	}
	return &RingBuffer[T]{
		data: make([]atomic.Pointer[T], size),
		mask: size - 1,
	}
}

// Enqueue adds item; returns false if full.
func (r *RingBuffer[T]) Enqueue(item *T) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask].Store(item)
	r.tail.Store(tail + 1)
	return true
}

// Dequeue removes and returns the oldest item; ok false if empty.
func (r *RingBuffer[T]) Dequeue() (*T, bool) {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if head >= tail {
			return nil, false
		}
		item := r.data[head&r.mask].Load()
		if r.head.CompareAndSwap(head, head+1) {
			return item, true
		}
	}
}

// Len returns number of items currently in buffer.
func (r *RingBuffer[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return 0
	}
	return int(tail - head)
}

// Cap returns fixed buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}
