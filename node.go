// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// node is a cell of the queue's singly-linked list.
//
// A node cycles through three states: free (on the arena free stack),
// live (reachable from the queue head), and retired (unlinked, waiting
// for hazard clearance). The next field serves as the queue link while
// live and as the free-stack link while free; its tag is carried across
// lives and never reset, so a location holding a recycled node's address
// still fails a stale CAS.
//
// The queue stores the element, never interprets it. For pointer-typed
// elements the caller keeps ownership of the pointed-to object.
type node[T any] struct {
	next atomicTagged
	// refs counts hazard acquisitions currently covering this node.
	// A retired node is freed only once refs is zero and no hazard
	// slot publishes its address.
	refs atomix.Int64
	// retireNext links the retired list. Written by the retiring
	// goroutine before the list-head CAS publishes the node; read
	// exclusively by whichever goroutine steals the list.
	retireNext uint64
	data       T
}

// addr returns the node's address as the packed-word representation.
func (n *node[T]) addr() uint64 {
	return uint64(uintptr(unsafe.Pointer(n)))
}

// nodeAt converts a packed address back to a node pointer.
// Valid because every node lives in an arena chunk that the queue keeps
// reachable, and the Go heap does not move allocations.
func nodeAt[T any](addr uint64) *node[T] {
	return (*node[T])(unsafe.Pointer(uintptr(addr)))
}
