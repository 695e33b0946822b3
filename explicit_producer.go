// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "sync"

// explicitProducer is a single-producer/multi-consumer sub-queue bound to
// an explicit [ProducerToken] (spec §4.4). Enqueue is single-writer (the
// token owner); dequeue is lock-free multi-reader via the reservation
// protocol in producerBase.
type explicitProducer[T any] struct {
	producerBase[T]

	// mu is held across enqueue's slow path (block reuse, block-index
	// growth, new-block splice); the fast path (writing into an already
	// indexed, non-full block) never takes it. Dequeue never takes it
	// either, so it does not order index.grown() against a concurrent
	// index.find(): readers see the index through the header pointer's
	// atomic load/store. Enqueue remains single-writer per token, as in the
	// C++ original.
	mu sync.Mutex

	tailBlock *block[T]
	index     atomicPtr[explicitIndexHeader[T]]

	pool          *blockPool[T]
	maxSubqueueSize uint64
}

func newExplicitProducer[T any](pool *blockPool[T], blockSize uint64, initialIndexSize uint64, maxSubqueueSize uint64) *explicitProducer[T] {
	p := &explicitProducer[T]{
		pool:            pool,
		maxSubqueueSize: maxSubqueueSize,
	}
	p.kind = producerExplicit
	p.blockSize = blockSize
	p.self = p
	p.index.storeRelaxed(newExplicitIndexHeader[T](initialIndexSize))
	return p
}

// enqueue places one element, allocating a new block if the current tail
// block is full (spec §4.4 "Enqueue (single element)"). tryAllocate false
// implements the "try" family of operations (spec §6): never allocate,
// fail immediately instead.
func (p *explicitProducer[T]) enqueue(val T, tryAllocate bool) error {
	currentTail := p.tailIndex.LoadRelaxed()
	newTail := currentTail + 1

	if p.tailBlock != nil && currentTail%p.blockSize != 0 {
		p.tailBlock.data[currentTail%p.blockSize] = val
		p.tailIndex.StoreRelease(newTail)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tailBlock != nil {
		if next := p.tailBlock.next.loadRelaxed(); next != nil && next.isEmpty() {
			next.resetEmpty()
			p.tailBlock = next
			p.publishIndexEntry(currentTail, next)
			next.data[currentTail%p.blockSize] = val
			p.tailIndex.StoreRelease(newTail)
			return nil
		}
	}

	head := p.headIndex.LoadRelaxed()
	if p.maxSubqueueSize != 0 && newTail-head > p.maxSubqueueSize {
		return ErrSubqueueFull
	}

	if !p.ensureIndexSlot() {
		return ErrAllocationFailed
	}

	nb := p.pool.acquire(tryAllocate)
	if nb == nil {
		return ErrAllocationFailed
	}
	nb.resetEmpty()

	if p.tailBlock == nil {
		nb.next.storeRelaxed(nb)
	} else {
		nb.next.storeRelaxed(p.tailBlock.next.loadRelaxed())
		p.tailBlock.next.storeRelaxed(nb)
	}
	p.tailBlock = nb

	p.publishIndexEntry(currentTail, nb)
	nb.data[currentTail%p.blockSize] = val
	p.tailIndex.StoreRelease(newTail)
	return nil
}

// publishIndexEntry writes a fresh {base, block} entry at front+1 and
// advances front. It does not grow the index; the new-block path calls
// ensureIndexSlot first.
func (p *explicitProducer[T]) publishIndexEntry(base uint64, b *block[T]) {
	idx := p.index.loadAcquire()
	slot := (idx.front.LoadRelaxed() + 1) % idx.size
	idx.entries[slot].base.StoreRelaxed(base)
	idx.entries[slot].block.storeRelease(b)
	idx.front.StoreRelease(idx.front.LoadRelaxed() + 1)
}

// ensureIndexSlot grows the block index by doubling when the next slot
// would collide with an in-use entry, retaining the old header as prev.
func (p *explicitProducer[T]) ensureIndexSlot() bool {
	idx := p.index.loadAcquire()
	used := p.tailIndex.LoadRelaxed()/p.blockSize - p.headIndex.LoadRelaxed()/p.blockSize
	if used+1 < idx.size {
		return true
	}
	grown := idx.grown()
	for slot := uint64(0); slot < idx.size; slot++ {
		src := &idx.entries[(idx.front.LoadRelaxed()+1+slot)%idx.size]
		if b := src.block.loadAcquire(); b != nil {
			grown.entries[slot].base.StoreRelaxed(src.base.LoadRelaxed())
			grown.entries[slot].block.storeRelaxed(b)
		}
	}
	grown.front.StoreRelaxed(idx.size - 1)
	p.index.storeRelease(grown)
	return true
}

// dequeue pops one element using the shared reservation protocol, then
// resolves and drains the owning block (spec §4.4 "Dequeue (single
// element)").
func (p *explicitProducer[T]) dequeue() (val T, ok bool) {
	index, reserved := p.reserveOneDequeue()
	if !reserved {
		return val, false
	}
	idx := p.index.loadAcquire()
	b := idx.find(index, p.blockSize)
	if b == nil {
		var zero T
		return zero, false
	}
	slot := index % p.blockSize
	val = b.data[slot]
	var zero T
	b.data[slot] = zero
	b.markEmpty(index)
	return val, true
}

// enqueueBulk places count elements from vals, allocating as many new
// blocks as needed (spec §4.4 "Bulk enqueue"). It is not required to be
// atomic with respect to concurrent dequeues of elements enqueued earlier.
func (p *explicitProducer[T]) enqueueBulk(vals []T, tryAllocate bool) error {
	for _, v := range vals {
		if err := p.enqueue(v, tryAllocate); err != nil {
			return err
		}
	}
	return nil
}

// dequeueBulk pops up to len(out) elements in one reservation (spec §4.4
// "Bulk dequeue"), returning the number actually popped.
func (p *explicitProducer[T]) dequeueBulk(out []T) int {
	first, actual := p.reserveManyDequeue(uint64(len(out)))
	if actual == 0 {
		return 0
	}
	idx := p.index.loadAcquire()
	n := 0
	remaining := actual
	pos := first
	for remaining > 0 {
		b := idx.find(pos, p.blockSize)
		if b == nil {
			break
		}
		start := pos % p.blockSize
		run := p.blockSize - start
		if run > remaining {
			run = remaining
		}
		for i := uint64(0); i < run; i++ {
			slot := (start + i) % p.blockSize
			out[n] = b.data[slot]
			var zero T
			b.data[slot] = zero
			n++
		}
		b.markManyEmpty(start, run)
		pos += run
		remaining -= run
	}
	return n
}
