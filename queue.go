// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is an unbounded lock-free multi-producer multi-consumer FIFO
// queue with hazard-pointer memory reclamation.
//
// Based on the Michael & Scott algorithm (PODC 1996) with the tagged
// head/tail/next pointers of the original formulation and hazard-pointer
// node reclamation (Michael, IEEE TPDS 2004). Tagged pointers defeat the
// ABA problem on node reuse; hazard pointers let nodes be recycled
// through the internal arena without a node ever being freed while
// another goroutine is about to dereference it.
//
// All operations go through a [Handle], which owns one row of the
// fixed-size hazard table. Create one handle per worker goroutine:
//
//	q := hpq.NewQueue[int](8)
//	h, err := q.Handle()
//	if err != nil {
//	    // hazard table at capacity
//	}
//	v := 42
//	h.Enqueue(&v)
//	elem, err := h.Dequeue()
//
// The queue grows without bound; Enqueue never reports a full queue.
// Dequeue returns ErrWouldBlock when the queue is empty.
//
// Memory: nodes are recycled in place. Steady-state footprint is
// proportional to the high-water element count plus the retired backlog.
type Queue[T any] struct {
	_    pad
	head atomicTagged // never nil: always addresses the sentinel
	_    pad
	tail atomicTagged // may lag; self-healing
	_    pad
	size atomix.Int64 // approximate element count
	_    pad
	retired atomicTagged // tagged stack of unlinked nodes
	_       pad
	retiredCount atomix.Int64
	_            pad
	arena    arena[T]
	registry *hazardRegistry

	retireThreshold int64
	reclaimBatch    int
}

// NewQueue creates a queue whose hazard table holds maxHandles rows.
//
// maxHandles is fixed for the queue's lifetime: it caps the number of
// handles that can ever be created and bounds the cost of reclamation
// scans. Panics if maxHandles < 1.
func NewQueue[T any](maxHandles int) *Queue[T] {
	return Build[T](New(maxHandles))
}

func newQueue[T any](opts Options) *Queue[T] {
	q := &Queue[T]{
		registry:        newHazardRegistry(opts.maxHandles),
		retireThreshold: int64(opts.retireThreshold),
		reclaimBatch:    opts.reclaimBatch,
	}

	// The sentinel keeps head non-nil for the queue's lifetime.
	// Real elements live strictly behind it.
	sentinel := q.arena.alloc()
	q.head.store(taggedPtr{addr: sentinel.addr()})
	q.tail.store(taggedPtr{addr: sentinel.addr()})
	return q
}

// Handle claims one hazard-table row and binds it to the returned handle.
//
// Returns ErrMaxHandles when all maxHandles rows are claimed. Rows are
// never returned to the table, so a failed claim only succeeds later if
// the table was not yet full — an intentional ceiling, not a leak.
//
// A Handle may be used by one goroutine at a time. Handles are cheap;
// create one per worker goroutine and keep it for the worker's lifetime.
func (q *Queue[T]) Handle() (*Handle[T], error) {
	row, ok := q.registry.claim()
	if !ok {
		return nil, ErrMaxHandles
	}
	return &Handle[T]{q: q, row: row}, nil
}

// Len returns the approximate number of elements.
//
// The count is a single-point snapshot with no linearizability guarantee
// of its own; it is exact only when no operations are in flight.
func (q *Queue[T]) Len() int {
	return int(q.size.Load())
}

// Empty reports whether the queue appears empty.
// Snapshot semantics, same caveat as Len.
func (q *Queue[T]) Empty() bool {
	head := q.head.load()
	return nodeAt[T](head.addr).next.load().addr == 0
}

// Close releases every live and retired node.
//
// Close is NOT thread-safe: the caller must guarantee no Enqueue,
// Dequeue, or Handle call is in flight and none will follow. Handles
// created from the queue become invalid.
func (q *Queue[T]) Close() {
	q.head.store(taggedPtr{})
	q.tail.store(taggedPtr{})
	q.retired.store(taggedPtr{})
	q.retiredCount.Store(0)
	q.size.Store(0)
	q.arena.release()
}

// Handle is a per-goroutine access point to the queue.
//
// It owns one hazard-table row for the queue's lifetime. A Handle must
// not be used from two goroutines concurrently; like the single-producer
// contract of a SPSC ring, violating this causes undefined behavior.
type Handle[T any] struct {
	q   *Queue[T]
	row *hazardRow
}

// protect publishes n's address in slot i and pins it via refcount.
// The protection is only trustworthy after the caller re-validates that
// the location it loaded n from is unchanged.
func (h *Handle[T]) protect(i int, n *node[T]) {
	h.row.publish(i, n.addr())
	n.refs.AddAcqRel(1)
}

// unprotect withdraws the publication in slot i.
func (h *Handle[T]) unprotect(i int, n *node[T]) {
	h.row.clear(i)
	n.refs.AddAcqRel(-1)
}

// Enqueue appends an element to the queue.
//
// The element is copied into an internal node; the caller may reuse
// *elem after return. Enqueue is lock-free and, because the queue is
// unbounded, never returns ErrWouldBlock. The error return is the
// Producer contract; it is nil on every path today.
func (h *Handle[T]) Enqueue(elem *T) error {
	q := h.q
	n := q.arena.alloc()
	n.data = *elem

	sw := spin.Wait{}
	for {
		tail := q.tail.load()
		tn := nodeAt[T](tail.addr)
		h.protect(slotPrimary, tn)
		if q.tail.load() != tail {
			// Snapshot went stale before protection landed.
			h.unprotect(slotPrimary, tn)
			sw.Once()
			continue
		}

		next := tn.next.load()
		if next.addr == 0 {
			// tail is genuinely last: link the new node.
			if tn.next.cas(next, next.withAddr(n.addr())) {
				// Best-effort swing; a failure means someone else
				// already helped tail forward.
				q.tail.cas(tail, tail.withAddr(n.addr()))
				q.size.Add(1)
				h.unprotect(slotPrimary, tn)
				return nil
			}
		} else {
			// tail lags behind the true last node: help it along.
			q.tail.cas(tail, tail.withAddr(next.addr))
		}
		h.unprotect(slotPrimary, tn)
		sw.Once()
	}
}

// Dequeue removes and returns the oldest element.
//
// Returns (zero-value, ErrWouldBlock) when the queue is empty.
// ErrWouldBlock is the expected steady state of an idle consumer, not a
// failure; poll again, ideally through an iox.Backoff.
func (h *Handle[T]) Dequeue() (T, error) {
	q := h.q
	sw := spin.Wait{}
	for {
		head := q.head.load()
		tail := q.tail.load()
		hn := nodeAt[T](head.addr)
		h.protect(slotPrimary, hn)
		if q.head.load() != head {
			h.unprotect(slotPrimary, hn)
			sw.Once()
			continue
		}

		next := hn.next.load()
		if head.addr == tail.addr {
			if next.addr == 0 {
				h.unprotect(slotPrimary, hn)
				var zero T
				return zero, ErrWouldBlock
			}
			// Non-empty but tail still addresses the sentinel: help.
			q.tail.cas(tail, tail.withAddr(next.addr))
			h.unprotect(slotPrimary, hn)
			sw.Once()
			continue
		}

		// head != tail implies the sentinel has a successor.
		nn := nodeAt[T](next.addr)
		h.protect(slotSecondary, nn)
		if q.head.load() != head {
			// nn may already be retired; nothing read from it yet.
			h.unprotect(slotSecondary, nn)
			h.unprotect(slotPrimary, hn)
			sw.Once()
			continue
		}

		// Capture before the CAS: on success nn becomes the new
		// sentinel and a later dequeue will retire it.
		data := nn.data
		if q.head.cas(head, head.withAddr(next.addr)) {
			q.size.Add(-1)
			h.unprotect(slotSecondary, nn)
			h.unprotect(slotPrimary, hn)
			q.retire(hn)
			return data, nil
		}
		h.unprotect(slotSecondary, nn)
		h.unprotect(slotPrimary, hn)
		sw.Once()
	}
}
