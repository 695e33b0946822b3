// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// implicitIndexEntry pairs an atomic key (block base index) with an atomic
// block pointer, the unit of storage for an implicit producer's block index
// (spec §4.5).
type implicitIndexEntry[T any] struct {
	key   atomix.Uint64
	block atomicPtr[block[T]]
}

// implicitIndexHeader is a power-of-two ring of implicitIndexEntry, written
// only by the owning thread (single-writer) and read by consumers with
// acquire ordering. tail is the write cursor; prev chains to the
// lower-capacity header this one grew from, kept alive for any consumer
// still holding a reference to it.
type implicitIndexHeader[T any] struct {
	entries []implicitIndexEntry[T]
	size    uint64
	tail    atomix.Uint64

	prev atomicPtr[implicitIndexHeader[T]]
}

func newImplicitIndexHeader[T any](size uint64) *implicitIndexHeader[T] {
	return &implicitIndexHeader[T]{
		entries: make([]implicitIndexEntry[T], size),
		size:    size,
	}
}

// insert is the single-writer append used by the owning implicit producer
// when it acquires a new block. It writes the block pointer before
// releasing the key, so a reader that observes the new key via lookup's
// acquire-load of key is guaranteed to see a non-nil block.
func (h *implicitIndexHeader[T]) insert(base uint64, b *block[T]) {
	slot := h.tail.LoadRelaxed() % h.size
	h.entries[slot].block.storeRelaxed(b)
	h.entries[slot].key.StoreRelease(base)
	h.tail.StoreRelease(h.tail.LoadRelaxed() + 1)
}

// lookup finds the block whose base range contains idx (spec §4.5: "divides
// the signed difference between the queried base and the tail entry's base
// by BLOCK_SIZE"). Returns nil on a miss.
func (h *implicitIndexHeader[T]) lookup(idx uint64, blockSize uint64) *block[T] {
	tailPos := h.tail.LoadAcquire()
	if tailPos == 0 {
		return nil
	}
	tailSlot := (tailPos - 1) % h.size
	tailBase := h.entries[tailSlot].key.LoadAcquire()
	indexBase := idx - (idx % blockSize)
	offset := signedDivU64(indexBase-tailBase, blockSize)
	slot := (int64(tailSlot) + offset) % int64(h.size)
	if slot < 0 {
		slot += int64(h.size)
	}
	entry := &h.entries[slot]
	if entry.key.LoadAcquire() != indexBase {
		return nil
	}
	return entry.block.loadAcquire()
}

// grown returns a new header of double the size with every live entry of h
// re-inserted, and h chained as prev for consumers still holding a stale
// reference (spec §4.5, "old entries are re-linked into the new index
// array").
func (h *implicitIndexHeader[T]) grown() *implicitIndexHeader[T] {
	nh := newImplicitIndexHeader[T](h.size * 2)
	count := h.tail.LoadAcquire()
	start := uint64(0)
	if count > h.size {
		start = count - h.size
	}
	for i := start; i < count; i++ {
		e := &h.entries[i%h.size]
		if b := e.block.loadAcquire(); b != nil {
			nh.insert(e.key.LoadAcquire(), b)
		}
	}
	nh.prev.storeRelaxed(h)
	return nh
}
