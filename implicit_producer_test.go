// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestImplicitProducerEnqueueDequeueAcrossBlocks(t *testing.T) {
	pool := newBlockPool[int](4, 4, 32, true, false)
	p := newImplicitProducer[int](pool, 4, 4)

	const n = 10
	for i := 0; i < n; i++ {
		if err := p.enqueue(i, true); err != nil {
			t.Fatalf("enqueue(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		v, ok := p.dequeue()
		if !ok || v != i {
			t.Fatalf("dequeue #%d: got (%d,%v), want (%d,true)", i, v, ok, i)
		}
	}
}

func TestImplicitProducerReleasesDrainedBlockToPool(t *testing.T) {
	pool := newBlockPool[int](1, 4, 32, true, true)
	p := newImplicitProducer[int](pool, 4, 4)

	for i := 0; i < 4; i++ {
		if err := p.enqueue(i, true); err != nil {
			t.Fatalf("enqueue(%d): %v", i, err)
		}
	}
	if pool.free.tryGet() != nil {
		t.Fatalf("pool free list before drain: want empty, block still owned by producer")
	}
	for i := 0; i < 4; i++ {
		if _, ok := p.dequeue(); !ok {
			t.Fatalf("dequeue #%d: want success", i)
		}
	}
	if pool.free.tryGet() == nil {
		t.Fatalf("pool free list after drain: want the emptied block back")
	}
}

func TestImplicitProducerTryEnqueueFailsWhenPoolExhausted(t *testing.T) {
	pool := newBlockPool[int](1, 4, 32, true, false)
	p := newImplicitProducer[int](pool, 4, 4)

	for i := 0; i < 4; i++ {
		if err := p.enqueue(i, false); err != nil {
			t.Fatalf("enqueue(%d) within first block: %v", i, err)
		}
	}
	if err := p.enqueue(4, false); err != ErrAllocationFailed {
		t.Fatalf("enqueue(tryAllocate=false) beyond pool: got %v, want ErrAllocationFailed", err)
	}
}

// TestImplicitProducerPoolReuseUnderInterleavedDrain exercises the §8
// scenario of a single recycled block changing hands between a producer
// still writing into it and a consumer draining it: with only one block
// in the pool and allocation disallowed, a block may only return to the
// pool once every element in it has actually been dequeued, and the
// physical memory a recycled block hands back must not carry stale
// values from the round that just vacated it.
func TestImplicitProducerPoolReuseUnderInterleavedDrain(t *testing.T) {
	pool := newBlockPool[int](1, 4, 32, true, false)
	p := newImplicitProducer[int](pool, 4, 4)

	for i := 0; i < 4; i++ {
		if err := p.enqueue(i, false); err != nil {
			t.Fatalf("enqueue(%d): %v", i, err)
		}
	}

	v, ok := p.dequeue()
	if !ok || v != 0 {
		t.Fatalf("dequeue #0: got (%d,%v), want (0,true)", v, ok)
	}

	// Indices 1-3 are still live in the only block the pool owns; it must
	// not be back on the free list yet, so an enqueue that needs a second
	// block must fail rather than silently reuse the still-live one.
	if err := p.enqueue(4, false); err != ErrAllocationFailed {
		t.Fatalf("enqueue(4) while block still holds live elements: got %v, want ErrAllocationFailed", err)
	}

	for i := 1; i < 4; i++ {
		v, ok := p.dequeue()
		if !ok || v != i {
			t.Fatalf("dequeue #%d: got (%d,%v), want (%d,true)", i, v, ok, i)
		}
	}

	// The block is now fully drained and recycled. A fresh round trip
	// through the reused physical block must see exactly the new values,
	// not anything left over from the first round's slots.
	for i := 4; i < 8; i++ {
		if err := p.enqueue(i, false); err != nil {
			t.Fatalf("enqueue(%d) after drain: %v", i, err)
		}
	}
	for i := 4; i < 8; i++ {
		v, ok := p.dequeue()
		if !ok || v != i {
			t.Fatalf("dequeue #%d after drain: got (%d,%v), want (%d,true)", i, v, ok, i)
		}
	}
}

func TestImplicitProducerDequeueBulk(t *testing.T) {
	pool := newBlockPool[int](4, 4, 32, true, false)
	p := newImplicitProducer[int](pool, 4, 4)

	const n = 9
	for i := 0; i < n; i++ {
		if err := p.enqueue(i, true); err != nil {
			t.Fatalf("enqueue(%d): %v", i, err)
		}
	}
	out := make([]int, n)
	got := p.dequeueBulk(out)
	if got != n {
		t.Fatalf("dequeueBulk: got %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		if out[i] != i {
			t.Fatalf("dequeueBulk[%d]: got %d, want %d", i, out[i], i)
		}
	}
}
