// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "sync"

// implicitProducer is a sub-queue bound to a thread identity rather than an
// explicit token (spec §4.5). It shares the explicit producer's enqueue
// state machine but releases each block back to the global pool the moment
// its last element is dequeued, and indexes blocks through an
// open-addressed hash instead of a circular array.
type implicitProducer[T any] struct {
	producerBase[T]

	mu sync.Mutex // serializes enqueue's block-splice/index-growth path

	tailBlock *block[T]
	index     atomicPtr[implicitIndexHeader[T]]

	pool *blockPool[T]
}

func newImplicitProducer[T any](pool *blockPool[T], blockSize uint64, initialIndexSize uint64) *implicitProducer[T] {
	p := &implicitProducer[T]{pool: pool}
	p.kind = producerImplicit
	p.blockSize = blockSize
	p.self = p
	p.index.storeRelaxed(newImplicitIndexHeader[T](initialIndexSize))
	return p
}

// enqueue places one element, acquiring a fresh block from the shared pool
// when the current one fills (spec §4.5, structural difference 1: blocks
// are pool-owned, not sub-queue-owned).
func (p *implicitProducer[T]) enqueue(val T, tryAllocate bool) error {
	currentTail := p.tailIndex.LoadRelaxed()
	newTail := currentTail + 1

	if p.tailBlock != nil && currentTail%p.blockSize != 0 {
		p.tailBlock.data[currentTail%p.blockSize] = val
		p.tailIndex.StoreRelease(newTail)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	nb := p.pool.acquire(tryAllocate)
	if nb == nil {
		return ErrAllocationFailed
	}
	nb.resetEmpty()
	p.ensureIndexSlot()
	idx := p.index.loadAcquire()
	idx.insert(currentTail, nb)

	p.tailBlock = nb
	nb.data[currentTail%p.blockSize] = val
	p.tailIndex.StoreRelease(newTail)
	return nil
}

// ensureIndexSlot grows the index by doubling (retaining the old header as
// prev) once the number of entries written into the current header
// reaches half its capacity, mirroring the hash table's own growth
// trigger (spec §4.6). Entries of blocks already returned to the pool
// still count.
func (p *implicitProducer[T]) ensureIndexSlot() {
	idx := p.index.loadAcquire()
	if idx.tail.LoadRelaxed() < idx.size/2 {
		return
	}
	grown := idx.grown()
	p.index.storeRelease(grown)
}

// dequeue pops one element, and if that drains the owning block entirely,
// returns the block to the shared pool (spec §4.5 structural difference 1).
func (p *implicitProducer[T]) dequeue() (val T, ok bool) {
	index, reserved := p.reserveOneDequeue()
	if !reserved {
		return val, false
	}
	idx := p.index.loadAcquire()
	b := idx.lookup(index, p.blockSize)
	if b == nil {
		var zero T
		return zero, false
	}
	slot := index % p.blockSize
	val = b.data[slot]
	var zero T
	b.data[slot] = zero
	if b.markEmpty(index) {
		p.pool.release(b)
	}
	return val, true
}

// enqueueBulk places vals one at a time through enqueue, as the explicit
// producer's enqueueBulk does. On an error, the elements before the
// failing one stay enqueued.
func (p *implicitProducer[T]) enqueueBulk(vals []T, tryAllocate bool) error {
	for _, v := range vals {
		if err := p.enqueue(v, tryAllocate); err != nil {
			return err
		}
	}
	return nil
}

// dequeueBulk pops up to len(out) elements in one reservation, releasing
// each block to the pool as soon as it empties (spec §4.5 / §4.4 "Bulk
// dequeue").
func (p *implicitProducer[T]) dequeueBulk(out []T) int {
	first, actual := p.reserveManyDequeue(uint64(len(out)))
	if actual == 0 {
		return 0
	}
	idx := p.index.loadAcquire()
	n := 0
	remaining := actual
	pos := first
	for remaining > 0 {
		b := idx.lookup(pos, p.blockSize)
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
		if b.markManyEmpty(start, run) {
			p.pool.release(b)
		}
		pos += run
		remaining -= run
	}
	return n
}
