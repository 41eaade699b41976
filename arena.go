// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// chunkSize is the number of nodes allocated per arena growth step.
const chunkSize = 256

// chunk is one allocation block of the arena.
type chunk[T any] struct {
	nodes []node[T]
	next  *chunk[T]
}

// arena allocates and recycles nodes in fixed-size chunks.
//
// Node addresses circulate through the queue as packed uint64 words that
// the garbage collector cannot trace, so the arena keeps every chunk
// reachable through the chunks chain for the queue's lifetime. The chain
// uses a stdlib atomic.Pointer precisely because the GC must see it.
//
// Recycled nodes sit on a tagged Treiber stack. The head tag makes the
// pop CAS immune to the ABA pattern of a node being popped, reused, and
// pushed back at the same address between a competitor's load and CAS.
type arena[T any] struct {
	_      pad
	free   atomicTagged // tagged stack of recycled nodes
	_      pad
	chunks atomic.Pointer[chunk[T]]
}

// alloc returns a node ready to go live. Its next link is {nil, tag+1}
// relative to the node's previous life.
func (a *arena[T]) alloc() *node[T] {
	sw := spin.Wait{}
	for {
		head := a.free.load()
		if head.addr == 0 {
			a.grow()
			continue
		}
		n := nodeAt[T](head.addr)
		next := n.next.load()
		if !a.free.cas(head, head.withAddr(next.addr)) {
			sw.Once()
			continue
		}
		// Exclusive owner now. Clear the link, keep advancing the tag.
		n.next.store(taggedPtr{tag: next.tag + 1})
		n.retireNext = 0
		return n
	}
}

// grow publishes a fresh chunk and splices its nodes onto the free stack.
func (a *arena[T]) grow() {
	c := &chunk[T]{nodes: make([]node[T], chunkSize)}
	for {
		old := a.chunks.Load()
		c.next = old
		if a.chunks.CompareAndSwap(old, c) {
			break
		}
	}

	// Chain the fresh nodes, then splice the whole run in one CAS.
	for i := range chunkSize - 1 {
		c.nodes[i].next.store(taggedPtr{addr: c.nodes[i+1].addr()})
	}
	first := c.nodes[0].addr()
	last := &c.nodes[chunkSize-1]
	sw := spin.Wait{}
	for {
		head := a.free.load()
		last.next.store(taggedPtr{addr: head.addr})
		if a.free.cas(head, head.withAddr(first)) {
			return
		}
		sw.Once()
	}
}

// freeNode returns a node to the free stack.
// Caller guarantees no hazard covers the node and refs is zero.
func (a *arena[T]) freeNode(n *node[T]) {
	var zero T
	n.data = zero // release the element for the caller's GC
	tag := n.next.load().tag
	sw := spin.Wait{}
	for {
		head := a.free.load()
		n.next.store(taggedPtr{addr: head.addr, tag: tag + 1})
		if a.free.cas(head, head.withAddr(n.addr())) {
			return
		}
		sw.Once()
	}
}

// release drops every chunk so the GC can reclaim all nodes at once.
// Only valid under the queue's Close precondition (no operations in flight).
func (a *arena[T]) release() {
	a.free.store(taggedPtr{})
	a.chunks.Store(nil)
}
