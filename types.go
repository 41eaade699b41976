// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value, so the original can be
// modified after Enqueue returns. The queue never interprets the element;
// for pointer-typed elements the caller keeps ownership of the
// pointed-to object.
//
// [*Handle] implements Producer.
type Producer[T any] interface {
	// Enqueue appends an element to the queue (non-blocking).
	// The queue is unbounded: Enqueue does not fail with ErrWouldBlock.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// Elements come out in FIFO order: enqueue and dequeue are linearizable,
// so if one dequeue returns X and a later-linearized dequeue returns Y,
// X was enqueued no later than Y.
//
// [*Handle] implements Consumer.
type Consumer[T any] interface {
	// Dequeue removes and returns the oldest element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	Dequeue() (T, error)
}
