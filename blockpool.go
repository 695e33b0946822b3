// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// blockPool hands out and recycles fixed-size blocks for every producer
// sub-queue sharing a queue (spec §4.3). A contiguous initial array is
// carved out at construction; once exhausted, blocks come from the free
// list, and only once that's empty is a new block heap-allocated (subject
// to Config.AllowAlloc).
type blockPool[T any] struct {
	initial      []block[T]
	initialIndex atomix.Uint64 // next unused slot in initial, monotonic

	free freeList[T]

	blockSize  uint64
	useCounter bool

	allowAlloc           bool
	recycleAllocatedOnly bool // Config.RecycleAllocatedBlocks
}

func newBlockPool[T any](initialBlocks int, blockSize uint64, emptyCounterThreshold uint64, allowAlloc bool, recycleAllocated bool) *blockPool[T] {
	useCounter := blockSize > emptyCounterThreshold
	p := &blockPool[T]{
		initial:              make([]block[T], initialBlocks),
		blockSize:            blockSize,
		useCounter:           useCounter,
		allowAlloc:           allowAlloc,
		recycleAllocatedOnly: recycleAllocated,
	}
	for i := range p.initial {
		p.initial[i] = *newBlock[T](blockSize, useCounter, true)
	}
	return p
}

// acquire returns a ready-to-use, fully-empty block, or nil if the pool is
// exhausted and allocation is disallowed (by Config.AllowAlloc or by the
// caller's own tryAllocate override, whichever is stricter) or fails.
func (p *blockPool[T]) acquire(tryAllocate bool) *block[T] {
	if idx := p.initialIndex.LoadAcquire(); idx < uint64(len(p.initial)) {
		if p.initialIndex.CompareAndSwapAcqRel(idx, idx+1) {
			b := &p.initial[idx]
			b.setAllEmpty()
			return b
		}
		// Lost the race for that slot; fall through to the free list.
		// Another acquire() will retry the initial array on its own turn.
	}
	if b := p.free.tryGet(); b != nil {
		b.setAllEmpty()
		return b
	}
	if !p.allowAlloc || !tryAllocate {
		return nil
	}
	b := newBlock[T](p.blockSize, p.useCounter, false)
	b.setAllEmpty()
	return b
}

// release returns a drained block to the pool: preallocated blocks always
// go back to the free list; heap-allocated ones follow
// Config.RecycleAllocatedBlocks (recycle to the free list, or let the
// garbage collector reclaim them, "freed" in the C++ sense.
func (p *blockPool[T]) release(b *block[T]) {
	if b.preallocated || p.recycleAllocatedOnly {
		p.free.add(b)
	}
	// else: drop the reference; GC reclaims it. Matches
	// RECYCLE_ALLOCATED_BLOCKS=false freeing heap blocks in the original.
}
