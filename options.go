// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

// Default reclamation tuning. The threshold trades retired-list memory
// against reclamation frequency; the batch bounds the work a single
// dequeue can absorb.
const (
	defaultRetireThreshold = 64
	defaultReclaimBatch    = 32
)

// Options configures queue creation.
type Options struct {
	// Hazard-table capacity (number of handles, fixed at creation)
	maxHandles int

	// Reclamation tuning
	retireThreshold int
	reclaimBatch    int
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Default tuning
//	q := hpq.Build[Event](hpq.New(16))
//
//	// Trade memory for fewer reclamation passes
//	q := hpq.Build[Event](hpq.New(16).RetireThreshold(512).ReclaimBatch(128))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given hazard-table capacity.
//
// maxHandles caps how many handles the queue can ever hand out and
// bounds the cost of every reclamation scan. It has no growth path;
// size it to the worker-goroutine count.
//
// Panics if maxHandles < 1.
func New(maxHandles int) *Builder {
	if maxHandles < 1 {
		panic("hpq: maxHandles must be >= 1")
	}
	return &Builder{opts: Options{
		maxHandles:      maxHandles,
		retireThreshold: defaultRetireThreshold,
		reclaimBatch:    defaultReclaimBatch,
	}}
}

// RetireThreshold sets the retired-node count that triggers a
// reclamation pass. Higher values batch more reclamation work at the
// cost of a larger retired backlog. Panics if n < 1.
func (b *Builder) RetireThreshold(n int) *Builder {
	if n < 1 {
		panic("hpq: retire threshold must be >= 1")
	}
	b.opts.retireThreshold = n
	return b
}

// ReclaimBatch sets the maximum number of retired nodes inspected per
// reclamation pass, bounding the pause a single dequeue can absorb.
// Panics if n < 1.
func (b *Builder) ReclaimBatch(n int) *Builder {
	if n < 1 {
		panic("hpq: reclaim batch must be >= 1")
	}
	b.opts.reclaimBatch = n
	return b
}

// Build creates the queue.
func Build[T any](b *Builder) *Queue[T] {
	return newQueue[T](b.opts)
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
