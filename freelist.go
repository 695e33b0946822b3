// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/spin"

// shouldBeOnFreeList is the high bit of a block's freeListRefs. A popper
// that has already bumped the low bits races an adder that wants to push
// the same node back on; this bit plus the refcount protocol below (spec
// §4.2, rationale in spec §9) is what keeps that race ABA-safe without a
// hazard-pointer or epoch scheme.
const shouldBeOnFreeList = uint64(1) << 63

// freeList is a lock-free, intrusive, multi-producer multi-consumer stack
// of recycled blocks. Intrusive: nodes are the blocks themselves
// (block.freeListRefs / block.freeListNext), not separately allocated list
// cells, matching the C++ original's memory layout.
type freeList[T any] struct {
	head atomicPtr[block[T]]
}

// add pushes node onto the free list. Safe to call concurrently with other
// add and tryGet calls, including against a tryGet that is mid-flight on
// the same node.
func (fl *freeList[T]) add(node *block[T]) {
	// A popper may be holding a reference to node (having bumped refs but
	// not yet read next/CASed it off the list). If so, defer the actual
	// attach to whichever of us observes the refcount drop back to zero.
	prevRefs := fetchOrU64(&node.freeListRefs, shouldBeOnFreeList)
	if prevRefs == 0 {
		fl.attach(node)
	}
}

// attach performs the actual push once we know no popper holds node.
func (fl *freeList[T]) attach(node *block[T]) {
	sw := spin.Wait{}
	for {
		head := fl.head.loadRelaxed()
		node.freeListNext.storeRelaxed(head)
		node.freeListRefs.StoreRelease(1)
		if fl.head.compareAndSwapAcqRel(head, node) {
			return
		}
		// Lost the race to push; another add/tryGet touched refs while we
		// were linking. Release our claim and retry if we're still the
		// one responsible for attaching. node.freeListRefs.AddAcqRel
		// returns the value *after* the add (fetch-add semantics, per the
		// teacher's AddAcqRel), so "the old value was 1" (no one else
		// touched refs since our release-store above) shows up as the new
		// value equalling exactly shouldBeOnFreeList.
		result := node.freeListRefs.AddAcqRel(shouldBeOnFreeList - 1)
		if result == shouldBeOnFreeList {
			sw.Once()
			continue
		}
		return
	}
}

// tryGet pops a node from the free list, or returns nil if empty.
func (fl *freeList[T]) tryGet() *block[T] {
	sw := spin.Wait{}
	head := fl.head.loadAcquire()
	for {
		if head == nil {
			return nil
		}
		refs := head.freeListRefs.LoadRelaxed()
		if refs&^shouldBeOnFreeList == 0 || !head.freeListRefs.CompareAndSwapAcqRel(refs, refs+1) {
			head = fl.head.loadAcquire()
			sw.Once()
			continue
		}

		next := head.freeListNext.loadRelaxed()
		if fl.head.compareAndSwapAcqRel(head, next) {
			// We own head now; undo our claim (2, not 1: one for the
			// claim we just added, one for the free list's own implicit
			// reference that transferred to us).
			head.freeListRefs.AddAcqRel(uint64(int64(-2)))
			return head
		}

		// Lost the race for head itself; release our claim. AddAcqRel
		// returns the post-subtract value, so "the pre-subtract value was
		// shouldBeOnFreeList+1" (an add() set the high bit but found us in
		// the way and bailed) shows up as the new value equalling exactly
		// shouldBeOnFreeList. Finish that add's job.
		prevHead := head
		head = fl.head.loadAcquire()
		result := prevHead.freeListRefs.AddAcqRel(uint64(int64(-1)))
		if result == shouldBeOnFreeList {
			fl.attach(prevHead)
		}
		sw.Once()
	}
}
