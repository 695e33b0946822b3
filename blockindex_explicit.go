// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// explicitIndexEntry is a {base, block} pair: base is the producer's
// monotonically growing enqueue index at which block starts (spec §4).
type explicitIndexEntry[T any] struct {
	base  atomix.Uint64
	block atomicPtr[block[T]]
}

// explicitIndexHeader is a power-of-two circular array of index entries for
// an explicit producer (spec §4.4). front marks the most recently
// published entry, the reference point find resolves offsets from; prev
// chains to the previous, smaller header so consumers holding a stale
// pointer into it remain valid until queue destruction (spec §4, "Retained
// prior tables").
type explicitIndexHeader[T any] struct {
	entries []explicitIndexEntry[T]
	size    uint64 // len(entries), power of two
	front   atomix.Uint64

	prev atomicPtr[explicitIndexHeader[T]]
}

func newExplicitIndexHeader[T any](size uint64) *explicitIndexHeader[T] {
	return &explicitIndexHeader[T]{
		entries: make([]explicitIndexEntry[T], size),
		size:    size,
	}
}

// find resolves the block that should contain logical index idx, by
// computing the signed difference between idx's base and front's base
// (spec §4.4 step 5: "signed difference ... divided by BLOCK_SIZE, added
// modulo index-size to front").
func (h *explicitIndexHeader[T]) find(idx uint64, blockSize uint64) *block[T] {
	frontSlot := h.front.LoadAcquire() % h.size
	frontBase := h.entries[frontSlot].base.LoadAcquire()
	indexBase := idx - (idx % blockSize)
	offset := signedDivU64(indexBase-frontBase, blockSize)
	slot := (int64(frontSlot) + offset) % int64(h.size)
	if slot < 0 {
		slot += int64(h.size)
	}
	return h.entries[slot].block.loadAcquire()
}

// grown returns a new header of double the size, with this header chained
// as prev. The caller is responsible for populating the new entries and
// publishing front/tail with release ordering.
func (h *explicitIndexHeader[T]) grown() *explicitIndexHeader[T] {
	nh := newExplicitIndexHeader[T](h.size * 2)
	nh.prev.storeRelaxed(h)
	return nh
}
