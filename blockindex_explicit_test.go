// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestExplicitIndexFindResolvesBase(t *testing.T) {
	h := newExplicitIndexHeader[int](4)
	b0 := newBlock[int](8, false, true)
	b1 := newBlock[int](8, false, true)

	h.entries[0].base.StoreRelaxed(0)
	h.entries[0].block.storeRelease(b0)
	h.front.StoreRelease(0)

	h.entries[1].base.StoreRelaxed(8)
	h.entries[1].block.storeRelease(b1)
	h.front.StoreRelease(1)

	if got := h.find(3, 8); got != b0 {
		t.Fatalf("find(3): got %p, want %p", got, b0)
	}
	if got := h.find(10, 8); got != b1 {
		t.Fatalf("find(10): got %p, want %p", got, b1)
	}
}

func TestExplicitIndexGrownChainsPrev(t *testing.T) {
	h := newExplicitIndexHeader[int](4)
	grown := h.grown()
	if grown.size != 8 {
		t.Fatalf("grown size: got %d, want 8", grown.size)
	}
	if grown.prev.loadRelaxed() != h {
		t.Fatalf("grown.prev: want the original header retained")
	}
}
