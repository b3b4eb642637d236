// Package queue implements the single-producer/single-consumer ring
// buffer used at every pipeline boundary: feed to matcher, matcher to
// publisher.
package queue

import "sync/atomic"

// SPSC is a lock-free, fixed-capacity ring buffer for exactly one
// producer goroutine and one consumer goroutine (spec §5, §6 — feed
// thread to symbol thread, symbol thread to publisher thread). head and
// tail are kept on separate cache lines so the producer and consumer
// never false-share.
//
// Generalized from the teacher's *order_book.Order-only retire ring
// (rbq/retire_ring.go, infra/memory/retire_ring.go) to any payload type.
type SPSC[T any] struct {
	head  uint64
	_pad1 [56]byte
	tail  uint64
	_pad2 [56]byte

	buf  []T
	mask uint64
}

// New allocates a ring of capacity pow2, which must be a power of two.
func New[T any](pow2 uint64) *SPSC[T] {
	if pow2 == 0 || pow2&(pow2-1) != 0 {
		panic("queue: capacity must be a power of two")
	}
	return &SPSC[T]{buf: make([]T, pow2), mask: pow2 - 1}
}

// Enqueue pushes v from the producer goroutine. Returns false if full.
func (q *SPSC[T]) Enqueue(v T) bool {
	h := q.head
	t := atomic.LoadUint64(&q.tail)
	if h-t == uint64(len(q.buf)) {
		return false
	}
	q.buf[h&q.mask] = v
	atomic.StoreUint64(&q.head, h+1)
	return true
}

// Dequeue pops the next value from the consumer goroutine. ok is false
// if the ring is empty.
func (q *SPSC[T]) Dequeue() (v T, ok bool) {
	t := q.tail
	h := atomic.LoadUint64(&q.head)
	if t == h {
		return v, false
	}
	v = q.buf[t&q.mask]
	var zero T
	q.buf[t&q.mask] = zero
	atomic.StoreUint64(&q.tail, t+1)
	return v, true
}

// Len returns a snapshot of the number of queued items. Safe to call
// from either goroutine, but racy with respect to the other side.
func (q *SPSC[T]) Len() int {
	h := atomic.LoadUint64(&q.head)
	t := atomic.LoadUint64(&q.tail)
	return int(h - t)
}

// Cap returns the ring's fixed capacity.
func (q *SPSC[T]) Cap() int { return len(q.buf) }

// IsFull reports whether the ring currently has no free slot.
func (q *SPSC[T]) IsFull() bool {
	return q.Len() == len(q.buf)
}

// IsEmpty reports whether the ring currently holds nothing.
func (q *SPSC[T]) IsEmpty() bool {
	return atomic.LoadUint64(&q.head) == atomic.LoadUint64(&q.tail)
}
