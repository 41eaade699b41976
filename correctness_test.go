// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/hpq"
	"code.hybscloud.com/iox"
)

// =============================================================================
// Test Helpers
// =============================================================================

// mustHandle claims a handle or fails the test.
func mustHandle[T any](t *testing.T, q *hpq.Queue[T]) *hpq.Handle[T] {
	t.Helper()
	h, err := q.Handle()
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return h
}

// =============================================================================
// Multiset Integrity Under Contention
// =============================================================================

// TestConcurrentMultisetIntegrity runs 4 producers enqueueing 1000
// distinct ids each against 4 consumers draining to exhaustion. The
// multiset of dequeued values must equal the multiset of enqueued
// values: no loss, no duplication, exactly 4000 distinct ids.
func TestConcurrentMultisetIntegrity(t *testing.T) {
	if hpq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 4
		numConsumers = 4
		itemsPerProd = 1000
		timeout      = 10 * time.Second
	)

	q := hpq.NewQueue[int](numProducers + numConsumers)
	defer q.Close()

	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var produced, consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	// Producers: each produces unique values (id*itemsPerProd + seq)
	for p := range numProducers {
		h := mustHandle(t, q)
		wg.Add(1)
		go func(id int, h *hpq.Handle[int]) {
			defer wg.Done()
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				if err := h.Enqueue(&v); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
				produced.Add(1)
			}
		}(p, h)
	}

	// Consumers: drain until everything produced has been consumed
	for range numConsumers {
		h := mustHandle(t, q)
		wg.Add(1)
		go func(h *hpq.Handle[int]) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := h.Dequeue()
				if err == nil {
					if v >= 0 && v < expectedTotal {
						seen[v].Add(1)
					}
					consumed.Add(1)
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}(h)
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout: produced=%d, consumed=%d/%d",
			produced.Load(), consumed.Load(), expectedTotal)
	}
	for v := range expectedTotal {
		if c := seen[v].Load(); c != 1 {
			t.Fatalf("value %d: consumed %d times, want exactly 1", v, c)
		}
	}

	// Quiescent: the drained queue must be exactly empty.
	if !q.Empty() {
		t.Fatal("drained queue: Empty() = false")
	}
	if q.Len() != 0 {
		t.Fatalf("drained queue: Len() = %d, want 0", q.Len())
	}
	if _, err := mustHandle(t, q).Dequeue(); !hpq.IsWouldBlock(err) {
		t.Fatalf("Dequeue on drained queue: got %v, want ErrWouldBlock", err)
	}
}

// TestPerProducerOrderSingleConsumer verifies linearizable FIFO: with a
// single consumer, each producer's values must arrive in the order that
// producer enqueued them.
func TestPerProducerOrderSingleConsumer(t *testing.T) {
	if hpq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 4
		itemsPerProd = 5000
		timeout      = 10 * time.Second
	)

	q := hpq.NewQueue[int](numProducers + 1)
	defer q.Close()

	var wg sync.WaitGroup
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		h := mustHandle(t, q)
		wg.Add(1)
		go func(id int, h *hpq.Handle[int]) {
			defer wg.Done()
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				h.Enqueue(&v)
			}
		}(p, h)
	}

	cons := mustHandle(t, q)
	lastSeq := make([]int, numProducers)
	for i := range lastSeq {
		lastSeq[i] = -1
	}

	total := numProducers * itemsPerProd
	backoff := iox.Backoff{}
	for received := 0; received < total; {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: received %d/%d", received, total)
		}
		v, err := cons.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		id, seq := v/itemsPerProd, v%itemsPerProd
		if seq <= lastSeq[id] {
			t.Fatalf("producer %d: seq %d arrived after seq %d", id, seq, lastSeq[id])
		}
		lastSeq[id] = seq
		received++
	}
	wg.Wait()

	for id, last := range lastSeq {
		if last != itemsPerProd-1 {
			t.Fatalf("producer %d: last seq %d, want %d", id, last, itemsPerProd-1)
		}
	}
}

// =============================================================================
// Reclamation Under Contention
// =============================================================================

// TestStressRecycledPayloadIntegrity churns the queue with pointer
// payloads whose canary must survive node recycling intact. A node freed
// while still read by a consumer, or a torn data slot on a recycled
// node, shows up as a canary mismatch.
func TestStressRecycledPayloadIntegrity(t *testing.T) {
	if hpq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	type payload struct {
		id     int
		canary uint64
	}
	const (
		numWorkers = 8
		rounds     = 20000
		timeout    = 20 * time.Second
	)

	// Aggressive reclamation so nodes recycle constantly under load.
	q := hpq.Build[*payload](hpq.New(numWorkers).RetireThreshold(8).ReclaimBatch(8))
	defer q.Close()

	var wg sync.WaitGroup
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	// Each worker is producer and consumer at once, maximizing
	// sentinel turnover and retirement pressure.
	for w := range numWorkers {
		h := mustHandle(t, q)
		wg.Add(1)
		go func(id int, h *hpq.Handle[*payload]) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range rounds {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				p := &payload{id: id*rounds + i, canary: uint64(id*rounds+i) ^ 0xdeadbeefcafe}
				if err := h.Enqueue(&p); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
				for {
					got, err := h.Dequeue()
					if err == nil {
						if got.canary != uint64(got.id)^0xdeadbeefcafe {
							t.Errorf("payload %d: corrupted canary %#x", got.id, got.canary)
							return
						}
						backoff.Reset()
						break
					}
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
			}
		}(w, h)
	}

	wg.Wait()
	if timedOut.Load() {
		t.Fatal("timeout under recycled-payload stress")
	}
	if q.Len() != 0 {
		t.Fatalf("quiescent Len: got %d, want 0", q.Len())
	}
}

// TestStressEmptyTransitions hammers the empty/non-empty boundary where
// the sentinel swap and tail helping interact the most.
func TestStressEmptyTransitions(t *testing.T) {
	if hpq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const (
		numPairs = 4
		rounds   = 10000
		timeout  = 10 * time.Second
	)

	q := hpq.NewQueue[int](numPairs * 2)
	defer q.Close()

	var wg sync.WaitGroup
	var consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)
	total := int64(numPairs * rounds)

	for p := range numPairs {
		prod := mustHandle(t, q)
		cons := mustHandle(t, q)

		wg.Add(2)
		go func(id int, h *hpq.Handle[int]) {
			defer wg.Done()
			for i := range rounds {
				v := id*rounds + i
				h.Enqueue(&v)
			}
		}(p, prod)
		go func(h *hpq.Handle[int]) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < total {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				if _, err := h.Dequeue(); err == nil {
					consumed.Add(1)
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}(cons)
	}

	wg.Wait()
	if timedOut.Load() {
		t.Fatalf("timeout: consumed %d/%d", consumed.Load(), total)
	}
	if !q.Empty() || q.Len() != 0 {
		t.Fatalf("quiescent: Empty=%v Len=%d", q.Empty(), q.Len())
	}
}
