// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// block is a fixed-capacity slab of element storage, the unit of allocation
// for every producer sub-queue (spec §4.1). Emptiness is tracked one of two
// ways, chosen once at the owning [blockPool]'s construction from
// Config.BlockSize vs Config.ExplicitBlockEmptyCounterThreshold: per-slot
// flags for small blocks, a single completion counter otherwise. Go has no
// const-generic template parameters, so unlike the C++ original this
// selection is a runtime field rather than a compile-time specialization;
// the branch in markEmpty/isEmpty is the one place that shows.
type block[T any] struct {
	data []T // len == blockSize

	useCounter bool
	blockSize  uint64

	emptyFlags []atomix.Bool // len == blockSize, used when !useCounter
	emptyCount atomix.Uint64 // used when useCounter

	// next chains blocks into an explicit producer's cyclic list. Unused
	// (left nil) for implicit-producer blocks, which are returned to the
	// pool instead of being linked.
	next atomicPtr[block[T]]

	// freeListRefs/freeListNext implement the free-list refcount/ABA
	// protocol of spec §4.2 directly on the block, matching the C++
	// original's intrusive free-list node.
	freeListRefs atomix.Uint64
	freeListNext atomicPtr[block[T]]

	// preallocated distinguishes blocks carved from the pool's initial
	// contiguous array (always returned to the free list) from
	// heap-allocated overflow blocks (recycled per Config.RecycleAllocatedBlocks).
	preallocated bool
}

func newBlock[T any](blockSize uint64, useCounter bool, preallocated bool) *block[T] {
	b := &block[T]{
		data:         make([]T, blockSize),
		useCounter:   useCounter,
		blockSize:    blockSize,
		preallocated: preallocated,
	}
	if !useCounter {
		b.emptyFlags = make([]atomix.Bool, blockSize)
	}
	return b
}

// markEmpty marks the slot at logicalIndex mod blockSize consumed. It
// returns whether the block just became completely empty, the signal an
// implicit producer uses to return the block to the pool.
func (b *block[T]) markEmpty(logicalIndex uint64) bool {
	slot := logicalIndex % b.blockSize
	if b.useCounter {
		var zero T
		b.data[slot] = zero
		return b.emptyCount.AddAcqRel(1) == b.blockSize
	}
	var zero T
	b.data[slot] = zero
	b.emptyFlags[slot].StoreRelease(true)
	return b.isEmpty()
}

// markManyEmpty marks a contiguous run of count slots starting at start,
// the bulk-dequeue counterpart of markEmpty.
func (b *block[T]) markManyEmpty(start uint64, count uint64) bool {
	if count == 0 {
		return b.isEmpty()
	}
	if b.useCounter {
		for i := uint64(0); i < count; i++ {
			var zero T
			b.data[(start+i)%b.blockSize] = zero
		}
		return b.emptyCount.AddAcqRel(count) == b.blockSize
	}
	for i := uint64(0); i < count; i++ {
		slot := (start + i) % b.blockSize
		var zero T
		b.data[slot] = zero
		b.emptyFlags[slot].StoreRelease(true)
	}
	return b.isEmpty()
}

// isEmpty reports whether every slot in the block has been consumed. Each
// flag is read with acquire ordering so the last one observed true
// establishes happens-before with the matching markEmpty's release store.
func (b *block[T]) isEmpty() bool {
	if b.useCounter {
		return b.emptyCount.LoadAcquire() == b.blockSize
	}
	for i := range b.emptyFlags {
		if !b.emptyFlags[i].LoadAcquire() {
			return false
		}
	}
	return true
}

// resetEmpty reinitializes a block's emptiness metadata so it can be
// reused for another round of production (explicit producer reuse of a
// drained block ahead in the cyclic list).
func (b *block[T]) resetEmpty() {
	if b.useCounter {
		b.emptyCount.StoreRelaxed(0)
		return
	}
	for i := range b.emptyFlags {
		b.emptyFlags[i].StoreRelaxed(false)
	}
}

// setAllEmpty marks every slot of a freshly allocated/recycled block as
// already consumed, the state a block starts in before any element has
// been written to it this round.
func (b *block[T]) setAllEmpty() {
	if b.useCounter {
		b.emptyCount.StoreRelaxed(b.blockSize)
		return
	}
	for i := range b.emptyFlags {
		b.emptyFlags[i].StoreRelaxed(true)
	}
}
