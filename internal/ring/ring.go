// Package ring implements the wait-free single-producer/single-consumer
// bounded queue used to hand values between adjacent pipeline stages (§4.1).
//
// Exactly one goroutine may call TryPush and exactly one goroutine may call
// TryPop/Peek on a given Ring at a time. That restriction is a contract, not
// dynamically enforced, matching the original hft::SPSCRingBuffer.
package ring

import "sync/atomic"

// cacheLinePad is sized to push the producer and consumer cursors onto
// separate cache lines and keep them off the same line as the slot array's
// header, eliminating false sharing between the two threads that touch them.
type cacheLinePad [64]byte

// Ring is a bounded SPSC queue of capacity N-1 usable slots (N reserved
// slots minus one sentinel to distinguish full from empty), where N is the
// power-of-two Size passed to New.
type Ring[T any] struct {
	mask uint64
	buf  []T

	_ cacheLinePad

	// producerIdx is written only by the producer, read by both.
	producerIdx atomic.Uint64

	_ cacheLinePad

	// consumerIdx is written only by the consumer, read by both.
	consumerIdx atomic.Uint64

	_ cacheLinePad
}

// New creates a ring buffer. size must be a power of two; it panics
// otherwise, matching the original's static_assert.
func New[T any](size uint64) *Ring[T] {
	if size == 0 || size&(size-1) != 0 {
		panic("ring: size must be a power of two")
	}
	return &Ring[T]{
		mask: size - 1,
		buf:  make([]T, size),
	}
}

// TryPush writes item into the next slot and advances the producer cursor.
// It returns false without blocking if the buffer is full.
func (r *Ring[T]) TryPush(item T) bool {
	writeIdx := r.producerIdx.Load()
	nextWrite := (writeIdx + 1) & r.mask
	readIdx := r.consumerIdx.Load() // acquire: synchronizes with the consumer's release store

	if nextWrite == readIdx {
		return false
	}

	r.buf[writeIdx&r.mask] = item
	r.producerIdx.Store(nextWrite) // release: publishes the slot write above
	return true
}

// TryPop reads and removes the oldest item. It returns the zero value and
// false without blocking if the buffer is empty.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	readIdx := r.consumerIdx.Load()
	writeIdx := r.producerIdx.Load() // acquire: synchronizes with the producer's release store

	if readIdx == writeIdx {
		return zero, false
	}

	item := r.buf[readIdx&r.mask]
	r.buf[readIdx&r.mask] = zero // drop the reference so a slow consumer doesn't pin memory
	nextRead := (readIdx + 1) & r.mask
	r.consumerIdx.Store(nextRead) // release: publishes the slot clear above
	return item, true
}

// Peek returns a non-consuming view of the oldest item without advancing
// the consumer cursor.
func (r *Ring[T]) Peek() (T, bool) {
	var zero T
	readIdx := r.consumerIdx.Load()
	writeIdx := r.producerIdx.Load()

	if readIdx == writeIdx {
		return zero, false
	}
	return r.buf[readIdx&r.mask], true
}

// Len returns the number of items currently queued. It is a snapshot and
// may be stale the instant it's read from any thread but the producer or
// consumer.
func (r *Ring[T]) Len() uint64 {
	p := r.producerIdx.Load()
	c := r.consumerIdx.Load()
	return (p - c) & r.mask
}

func (r *Ring[T]) IsEmpty() bool {
	return r.producerIdx.Load() == r.consumerIdx.Load()
}

// Capacity returns the usable capacity (one less than the slot count: one
// slot is reserved to distinguish full from empty).
func (r *Ring[T]) Capacity() uint64 {
	return r.mask
}
