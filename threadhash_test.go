// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestThreadHashTableInsertLookup(t *testing.T) {
	tbl := newThreadHashTable[int](8)
	pool := newBlockPool[int](4, 4, 32, true, false)
	p := newImplicitProducer[int](pool, 4, 4)

	if !tbl.insert(7, p) {
		t.Fatalf("insert: want success on a fresh table")
	}
	if got := tbl.lookup(7); got != p {
		t.Fatalf("lookup: got %p, want %p", got, p)
	}
	if got := tbl.lookup(99); got != nil {
		t.Fatalf("lookup of absent key: want nil, got %p", got)
	}
}

func TestThreadHashTableInsertFullReturnsFalse(t *testing.T) {
	tbl := newThreadHashTable[int](2)
	pool := newBlockPool[int](4, 4, 32, true, false)
	p1 := newImplicitProducer[int](pool, 4, 4)
	p2 := newImplicitProducer[int](pool, 4, 4)
	p3 := newImplicitProducer[int](pool, 4, 4)

	if !tbl.insert(1, p1) {
		t.Fatalf("insert(1): want success")
	}
	if !tbl.insert(2, p2) {
		t.Fatalf("insert(2): want success")
	}
	if tbl.insert(3, p3) {
		t.Fatalf("insert(3) into a full 2-slot table: want failure")
	}
}

func TestThreadHashTableReleaseMakesSlotReusable(t *testing.T) {
	tbl := newThreadHashTable[int](8)
	pool := newBlockPool[int](4, 4, 32, true, false)
	p1 := newImplicitProducer[int](pool, 4, 4)
	p2 := newImplicitProducer[int](pool, 4, 4)

	tbl.insert(5, p1)
	tbl.release(5)
	if tbl.lookup(5) != nil {
		t.Fatalf("lookup after release: want nil")
	}
	if !tbl.insert(5, p2) {
		t.Fatalf("insert after release: want the reusable slot to accept a new id")
	}
	if got := tbl.lookup(5); got != p2 {
		t.Fatalf("lookup after reinsert: got %p, want %p", got, p2)
	}
}

func TestThreadHashTableLoadFactorOverHalf(t *testing.T) {
	tbl := newThreadHashTable[int](4)
	pool := newBlockPool[int](4, 4, 32, true, false)
	if tbl.loadFactorOverHalf() {
		t.Fatalf("loadFactorOverHalf on empty table: want false")
	}
	tbl.insert(1, newImplicitProducer[int](pool, 4, 4))
	tbl.insert(2, newImplicitProducer[int](pool, 4, 4))
	if !tbl.loadFactorOverHalf() {
		t.Fatalf("loadFactorOverHalf at 2/4: want true")
	}
}

func TestThreadHashTableLookupFallsBackToPrevChain(t *testing.T) {
	old := newThreadHashTable[int](4)
	pool := newBlockPool[int](4, 4, 32, true, false)
	p := newImplicitProducer[int](pool, 4, 4)
	old.insert(3, p)

	grown := newThreadHashTable[int](8)
	grown.prev.storeRelaxed(old)

	if got := grown.lookup(3); got != p {
		t.Fatalf("lookup via prev chain: got %p, want %p", got, p)
	}
}
