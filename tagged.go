// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import "code.hybscloud.com/atomix"

// taggedPtr is a node address paired with a generation tag.
//
// The tag advances on every successful mutation of the location holding
// the pointer, so a node recycled at the same address cannot satisfy a
// stale compare-and-swap: the address matches but the tag does not.
// Tag wraparound after 2^64 advances is an accepted risk; the reuse
// window in practice is far too small to complete a full cycle between
// a load and the matching CAS.
//
// addr is the node's memory address as a uint64 (0 = nil). Nodes are
// pinned by the queue's arena (see arena.go), so an address remains
// valid for the lifetime of the queue regardless of what the GC can see.
type taggedPtr struct {
	addr uint64
	tag  uint64
}

// advance returns tp with the same address and the next generation tag.
func (tp taggedPtr) advance() taggedPtr {
	return taggedPtr{addr: tp.addr, tag: tp.tag + 1}
}

// withAddr returns a taggedPtr carrying addr and the next generation
// after tp. Used when swinging a location to a different node.
func (tp taggedPtr) withAddr(addr uint64) taggedPtr {
	return taggedPtr{addr: addr, tag: tp.tag + 1}
}

// atomicTagged is an atomically mutable taggedPtr.
//
// Both words are packed into a single 128-bit entry (lo=tag, hi=addr)
// so that load and CAS always observe address and tag as one unit.
// On platforms without native 128-bit atomics, atomix falls back to a
// documented emulation; the same single-unit contract still holds.
type atomicTagged struct {
	entry atomix.Uint128 // lo=tag, hi=addr
}

// load returns the current value with acquire ordering.
func (a *atomicTagged) load() taggedPtr {
	lo, hi := a.entry.LoadAcquire()
	return taggedPtr{addr: hi, tag: lo}
}

// store writes tp with relaxed ordering.
// Only valid before the owning structure is published.
func (a *atomicTagged) store(tp taggedPtr) {
	a.entry.StoreRelaxed(tp.tag, tp.addr)
}

// cas installs next only if the current value equals expected in both
// words, as a single atomic unit. Acquire-release ordering on success.
func (a *atomicTagged) cas(expected, next taggedPtr) bool {
	return a.entry.CompareAndSwapAcqRel(expected.tag, expected.addr, next.tag, next.addr)
}
