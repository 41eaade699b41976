// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import "code.hybscloud.com/atomix"

// hazardSlots is the number of hazard slots per registry row.
// The queue protocol needs at most two concurrently (head and its
// successor during dequeue); the spare slots match the row layout of
// comparable hazard-pointer schemes and cost one cache line regardless.
const hazardSlots = 4

// Hazard slot indices used by the queue protocol.
const (
	slotPrimary   = 0 // tail node in enqueue, head sentinel in dequeue
	slotSecondary = 1 // head's successor in dequeue
)

// hazardSlot publishes one node address a goroutine is about to
// dereference. Reclamation must not free a node while any active slot
// publishes its address.
type hazardSlot struct {
	addr   atomix.Uint64
	active atomix.Bool
}

// hazardRow is one handle's fixed set of hazard slots.
// Rows are claimed once and never returned to the pool.
type hazardRow struct {
	owner atomix.Uint64 // handle id, 0 = unclaimed
	slots [hazardSlots]hazardSlot
	_     pad
}

// publish announces addr in slot i.
//
// Sequentially consistent stores: the publication must be globally
// ordered before the caller's re-validation load, otherwise a concurrent
// reclaimer could scan past the slot before the address lands.
func (row *hazardRow) publish(i int, addr uint64) {
	s := &row.slots[i]
	s.addr.Store(addr)
	s.active.Store(true)
}

// clear withdraws the publication in slot i.
func (row *hazardRow) clear(i int) {
	s := &row.slots[i]
	s.active.Store(false)
	s.addr.Store(0)
}

// hazardRegistry is the fixed-capacity table of hazard rows, sized at
// queue creation. The capacity is an intentional ceiling: it bounds the
// work of every reclamation scan.
type hazardRegistry struct {
	rows   []hazardRow
	nextID atomix.Uint64
}

func newHazardRegistry(maxHandles int) *hazardRegistry {
	return &hazardRegistry{rows: make([]hazardRow, maxHandles)}
}

// claim acquires an unclaimed row for a new handle.
// Returns false when every row is taken.
func (r *hazardRegistry) claim() (*hazardRow, bool) {
	id := r.nextID.AddAcqRel(1)
	for i := range r.rows {
		row := &r.rows[i]
		if row.owner.LoadAcquire() != 0 {
			continue
		}
		if row.owner.CompareAndSwapAcqRel(0, id) {
			return row, true
		}
	}
	return nil, false
}

// scan reports whether any active slot currently publishes addr.
// Read-only with respect to other rows; never blocks queue operations.
func (r *hazardRegistry) scan(addr uint64) bool {
	for i := range r.rows {
		row := &r.rows[i]
		if row.owner.LoadAcquire() == 0 {
			continue
		}
		for j := range row.slots {
			s := &row.slots[j]
			if s.active.Load() && s.addr.Load() == addr {
				return true
			}
		}
	}
	return false
}
