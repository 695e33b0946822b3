// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestImplicitIndexInsertThenLookup(t *testing.T) {
	h := newImplicitIndexHeader[int](4)
	b0 := newBlock[int](8, false, true)
	b1 := newBlock[int](8, false, true)

	h.insert(0, b0)
	h.insert(8, b1)

	if got := h.lookup(3, 8); got != b0 {
		t.Fatalf("lookup(3): got %p, want %p", got, b0)
	}
	if got := h.lookup(10, 8); got != b1 {
		t.Fatalf("lookup(10): got %p, want %p", got, b1)
	}
	if got := h.lookup(20, 8); got != nil {
		t.Fatalf("lookup(20): want nil on miss, got %p", got)
	}
}

func TestImplicitIndexGrownPreservesEntries(t *testing.T) {
	h := newImplicitIndexHeader[int](4)
	b0 := newBlock[int](8, false, true)
	b1 := newBlock[int](8, false, true)
	h.insert(0, b0)
	h.insert(8, b1)

	nh := h.grown()
	if nh.size != 8 {
		t.Fatalf("grown size: got %d, want 8", nh.size)
	}
	if nh.prev.loadRelaxed() != h {
		t.Fatalf("grown.prev: want the original header retained")
	}
	if got := nh.lookup(3, 8); got != b0 {
		t.Fatalf("lookup(3) after grown: got %p, want %p", got, b0)
	}
	if got := nh.lookup(10, 8); got != b1 {
		t.Fatalf("lookup(10) after grown: got %p, want %p", got, b1)
	}
}
