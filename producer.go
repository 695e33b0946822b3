// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// producerKind distinguishes the two sub-queue flavors that share the
// reservation protocol below (spec §4.4/§4.5).
type producerKind uint8

const (
	producerExplicit producerKind = iota
	producerImplicit
)

// producerBase holds the fields and the dequeue reservation protocol common
// to both explicit and implicit producer sub-queues (spec §3 "Producer
// sub-queue"). tailIndex/headIndex bound the live range of the sub-queue;
// dequeueOptimisticCount/dequeueOvercommit jointly implement the
// non-blocking reservation protocol that lets many consumers race to claim
// slots without ever over-committing past what tailIndex actually permits.
type producerBase[T any] struct {
	_          pad
	tailIndex  atomix.Uint64
	_          pad
	headIndex  atomix.Uint64
	_          pad
	dequeueOptimisticCount atomix.Uint64
	_                      pad
	dequeueOvercommit      atomix.Uint64
	_                      pad

	kind     producerKind
	inactive atomix.Bool

	// next links this sub-queue into the registry's CAS-push-only list
	// (spec §4.6). Set once at registration and never modified afterward.
	next atomicPtr[producerBase[T]]

	// self holds the concrete *explicitProducer[T] or *implicitProducer[T]
	// that embeds this base, so the registry's list (which only ever
	// stores *producerBase[T]) can recover the concrete type without an
	// unsafe pointer cast through the embedding.
	self any

	blockSize uint64
}

// reserveOneDequeue runs the single-element reservation protocol (spec
// §4.4 steps 1,2,4,7 / shared by implicit producers). It returns the
// reserved logical index and true on success. It returns false without
// touching any counter when the first sample already shows the sub-queue
// empty; a failure after the optimistic increment returns false with the
// overcommit counter already bumped.
func (p *producerBase[T]) reserveOneDequeue() (index uint64, ok bool) {
	overcommit := p.dequeueOvercommit.LoadRelaxed()
	optimistic := p.dequeueOptimisticCount.LoadRelaxed()
	tail := p.tailIndex.LoadRelaxed()
	if !circularLessU64(optimistic-overcommit, tail) {
		return 0, false
	}

	// AddAcqRel returns the post-increment value; the original's
	// pre-increment my_count is one less, so the "< tail" test below
	// compares against tail+1 to compensate (see the freelist's similar
	// old-vs-new-value note).
	myCount := p.dequeueOptimisticCount.AddAcqRel(1)
	tail = p.tailIndex.LoadAcquire()
	if circularLessU64(myCount-overcommit, tail+1) {
		index = p.headIndex.AddAcqRel(1) - 1
		return index, true
	}

	p.dequeueOvercommit.AddAcqRel(1)
	return 0, false
}

// reserveManyDequeue runs the bulk reservation protocol (spec §4.4 "Bulk
// dequeue"): reserve desired = min(max, available) slots with a single
// fetch-add, refund the unused remainder, and fetch-add head_index once
// for the whole run. Returns the first reserved logical index and the
// actual count reserved (may be less than max, including zero).
func (p *producerBase[T]) reserveManyDequeue(max uint64) (firstIndex uint64, actual uint64) {
	if max == 0 {
		return 0, 0
	}
	overcommit := p.dequeueOvercommit.LoadRelaxed()
	optimistic := p.dequeueOptimisticCount.LoadRelaxed()
	tail := p.tailIndex.LoadRelaxed()
	available := int64(tail-(optimistic-overcommit))
	if available <= 0 {
		return 0, 0
	}
	desired := max
	if uint64(available) < desired {
		desired = uint64(available)
	}

	myCount := p.dequeueOptimisticCount.AddAcqRel(desired)
	tail = p.tailIndex.LoadAcquire()
	available = int64(tail - (myCount - overcommit - desired))
	actual = desired
	if available < int64(desired) {
		if available < 0 {
			available = 0
		}
		actual = uint64(available)
	}
	if actual < desired {
		p.dequeueOvercommit.AddAcqRel(desired - actual)
	}
	if actual == 0 {
		return 0, 0
	}
	firstIndex = p.headIndex.AddAcqRel(actual) - actual
	return firstIndex, actual
}

// sizeApprox returns a racy, instantaneous estimate of the number of
// elements currently in this sub-queue (tail minus the already-committed
// dequeues). Undefined under pathological index wrap, per spec §11.
func (p *producerBase[T]) sizeApprox() uint64 {
	tail := p.tailIndex.LoadAcquire()
	head := p.headIndex.LoadAcquire()
	if circularLessU64(tail, head) {
		return 0
	}
	return tail - head
}
