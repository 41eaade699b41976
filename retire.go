// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import "code.hybscloud.com/spin"

// retire hands an unlinked node to the reclaimer.
//
// The node goes onto the lock-free retired stack; whichever retire call
// pushes the count past the threshold also runs a bounded reclamation
// pass. There is no background goroutine — reclamation cost is amortized
// across ordinary dequeues and bounded per call.
func (q *Queue[T]) retire(n *node[T]) {
	q.push(n)
	if q.retiredCount.AddAcqRel(1) >= q.retireThreshold {
		q.reclaim()
	}
}

// push places n on the retired stack without touching the counter.
func (q *Queue[T]) push(n *node[T]) {
	sw := spin.Wait{}
	for {
		head := q.retired.load()
		n.retireNext = head.addr
		if q.retired.cas(head, head.withAddr(n.addr())) {
			return
		}
		sw.Once()
	}
}

// reclaim steals the retired stack and frees what no hazard covers.
//
// At most reclaimBatch nodes are inspected; a node still published in
// some hazard slot, or still carrying a nonzero refcount, goes back on
// the stack for a later pass. The uninspected remainder is re-pushed
// untouched, keeping pause times bounded regardless of backlog size.
func (q *Queue[T]) reclaim() {
	head := q.retired.load()
	for head.addr != 0 {
		if q.retired.cas(head, head.withAddr(0)) {
			break
		}
		head = q.retired.load()
	}
	if head.addr == 0 {
		return
	}

	// The stolen chain is exclusively ours.
	addr := head.addr
	for inspected := 0; addr != 0 && inspected < q.reclaimBatch; inspected++ {
		n := nodeAt[T](addr)
		addr = n.retireNext
		if n.refs.Load() == 0 && !q.registry.scan(n.addr()) {
			q.retiredCount.AddAcqRel(-1)
			q.arena.freeNode(n)
		} else {
			q.push(n)
		}
	}
	for addr != 0 {
		n := nodeAt[T](addr)
		addr = n.retireNext
		q.push(n)
	}
}
