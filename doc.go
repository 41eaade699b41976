// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hpq provides an unbounded lock-free MPMC FIFO queue with
// hazard-pointer memory reclamation.
//
// The queue implements the Michael & Scott algorithm (PODC 1996) in its
// original tagged-pointer formulation: head, tail, and every node link
// carry a generation counter that is compare-and-swapped together with
// the address as one 128-bit unit, so a node recycled at the same
// address cannot satisfy a stale CAS (the ABA problem). Unlinked nodes
// are reclaimed through hazard pointers (Michael, IEEE TPDS 2004): a
// goroutine publishes the node it is about to dereference, and
// reclamation skips any node still published.
//
// Unlike the bounded ring queues in [code.hybscloud.com/lfq], this queue
// grows without bound and never applies backpressure: Enqueue always
// succeeds, and only Dequeue can report ErrWouldBlock (queue empty).
// Use lfq when a capacity bound is the point; use hpq when producers
// must never be refused.
//
// # Quick Start
//
//	q := hpq.NewQueue[Event](8) // up to 8 handles
//
//	h, err := q.Handle() // one per worker goroutine
//	if err != nil {
//	    // hazard table at capacity
//	}
//
//	v := Event{ID: 1}
//	h.Enqueue(&v)
//
//	elem, err := h.Dequeue()
//	if hpq.IsWouldBlock(err) {
//	    // queue is empty - poll again later
//	}
//
// # Handles
//
// Every operation goes through a [Handle]. A handle owns one row of the
// queue's fixed-size hazard table: the row is claimed when the handle is
// created and is never returned, so the maxHandles given at creation is
// a hard ceiling on the number of handles over the queue's lifetime.
// This is intentional — the table size bounds the cost of every
// reclamation scan.
//
// A handle may be used by one goroutine at a time. Sharing a handle
// between concurrent goroutines causes undefined behavior, exactly like
// running two producers on an SPSC ring. Create one handle per worker:
//
//	for range numWorkers {
//	    h, _ := q.Handle()
//	    go func(h *hpq.Handle[Task]) {
//	        backoff := iox.Backoff{}
//	        for {
//	            task, err := h.Dequeue()
//	            if err != nil {
//	                backoff.Wait()
//	                continue
//	            }
//	            backoff.Reset()
//	            task.Execute()
//	        }
//	    }(h)
//	}
//
// # Memory Reclamation
//
// Dequeued nodes are not handed to the garbage collector. They move to a
// lock-free retired list and return to the internal arena once no hazard
// slot publishes them and their reference count is zero. Reclamation
// runs inline: the dequeue that pushes the retired count past the
// configured threshold sweeps a bounded batch. There is no background
// goroutine and no operation ever blocks on reclamation.
//
// Tuning via the builder:
//
//	q := hpq.Build[Event](hpq.New(16).RetireThreshold(512).ReclaimBatch(128))
//
// # Error Handling
//
// Dequeue returns [ErrWouldBlock] when the queue is empty. This error is
// sourced from [code.hybscloud.com/iox] for ecosystem consistency and is
// a control flow signal, not a failure:
//
//	backoff := iox.Backoff{}
//	for {
//	    elem, err := h.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        process(elem)
//	        continue
//	    }
//	    backoff.Wait()
//	}
//
// Queue.Handle returns [ErrMaxHandles] when the hazard table is full.
// Invalid configuration (maxHandles < 1, zero thresholds) panics at
// construction. Allocation failure surfaces as a runtime OOM panic, as
// with any Go allocation; the queue never exposes a partially linked
// node.
//
// # Size and Emptiness
//
// Len and Empty are single-point snapshots with no linearizability
// guarantee of their own, even though Enqueue and Dequeue are
// linearizable. They are exact only in quiescence (no operations in
// flight). This is the honest contract for a lock-free structure;
// track precise counts in application logic when needed.
//
// # Progress Guarantees
//
// Enqueue and Dequeue are lock-free: some goroutine always completes in
// a bounded number of steps, but an individual goroutine can in
// principle retry indefinitely under adversarial scheduling (not
// wait-free). No operation takes a mutex or blocks on I/O; contended
// retries spin through [code.hybscloud.com/spin] pause hints. There is
// no timeout or cancellation parameter — wrap calls externally if one
// is needed.
//
// # Platform Notes
//
// Tagged pointers require a 128-bit single-unit compare-and-swap. On
// architectures without a native double-width atomic, atomix provides a
// documented emulation preserving the same contract; this is a platform
// limitation to be aware of in latency-critical deployments, never a
// silent downgrade to non-atomic behavior.
//
// # Race Detection
//
// Go's race detector cannot observe the happens-before edges that
// atomix acquire/release orderings establish across separate variables,
// and reports false positives on node data fields. The concurrent tests
// and examples are excluded via //go:build !race. For algorithm-level
// verification use stress testing without the detector or formal tools.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions.
package hpq
