// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestBlockPoolInitialThenOverflow(t *testing.T) {
	p := newBlockPool[int](2, 8, 32, true, false)

	a := p.acquire(true)
	b := p.acquire(true)
	if a == nil || b == nil {
		t.Fatalf("acquire from initial pool: got nil")
	}
	if a == b {
		t.Fatalf("acquire: returned the same block twice")
	}

	c := p.acquire(true)
	if c == nil {
		t.Fatalf("acquire beyond initial pool with AllowAlloc=true: got nil")
	}
}

func TestBlockPoolDisallowAllocFailsWhenExhausted(t *testing.T) {
	p := newBlockPool[int](1, 8, 32, false, false)

	if p.acquire(true) == nil {
		t.Fatalf("first acquire from initial pool: got nil")
	}
	if p.acquire(true) != nil {
		t.Fatalf("acquire beyond initial pool with AllowAlloc=false: want nil")
	}
}

func TestBlockPoolTryAllocateOverride(t *testing.T) {
	p := newBlockPool[int](1, 8, 32, true, false)
	_ = p.acquire(true)
	if p.acquire(false) != nil {
		t.Fatalf("acquire(tryAllocate=false) beyond pool: want nil even though Config.AllowAlloc is true")
	}
}

func TestBlockPoolReleaseRecyclesPreallocated(t *testing.T) {
	p := newBlockPool[int](1, 8, 32, true, true)
	b := p.acquire(true)
	p.release(b)

	got := p.acquire(true)
	if got != b {
		t.Fatalf("release then acquire: want the same preallocated block back via the free list")
	}
}

func TestBlockPoolReleaseDropsDynamicWhenPolicySaysDiscard(t *testing.T) {
	p := newBlockPool[int](0, 8, 32, true, false)
	b := p.acquire(true)
	if b.preallocated {
		t.Fatalf("acquire with empty initial pool: expected a dynamically allocated block")
	}
	p.release(b)
	if p.free.tryGet() != nil {
		t.Fatalf("release of dynamic block with RecycleAllocatedBlocks=false: want it dropped, not recycled")
	}
}
