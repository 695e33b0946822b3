// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// registry owns the CAS-push-only producer list and the implicit-producer
// thread-identity hash shared by every sub-queue of a queue (spec §4.6).
type registry[T any] struct {
	head atomicPtr[producerBase[T]]

	hash          atomicPtr[threadHashTable[T]]
	resizing      atomix.Bool
	initialHashSz uint64
}

func newRegistry[T any](initialHashSize uint64) *registry[T] {
	r := &registry[T]{initialHashSz: initialHashSize}
	r.hash.storeRelaxed(newThreadHashTable[T](initialHashSize))
	return r
}

// push links a freshly constructed sub-queue at the head of the producer
// list with a CAS retry loop (spec §4.6 "Producer list": the original
// links at the tail under a traversal; a head-CAS push is the standard
// lock-free substitute and preserves the same traversal/recycling
// contract since the list's order is never otherwise significant).
func (r *registry[T]) push(base *producerBase[T]) {
	for {
		head := r.head.loadAcquire()
		base.next.storeRelaxed(head)
		if r.head.compareAndSwapAcqRel(head, base) {
			return
		}
	}
}

// recycleExplicit scans the list for an inactive explicit producer and
// reactivates the first one found (spec §4.6 "Recycling").
func (r *registry[T]) recycleExplicit() *explicitProducer[T] {
	for n := r.head.loadAcquire(); n != nil; n = n.next.loadAcquire() {
		if n.kind != producerExplicit || !n.inactive.LoadAcquire() {
			continue
		}
		if n.inactive.CompareAndSwapAcqRel(true, false) {
			return n.self.(*explicitProducer[T])
		}
	}
	return nil
}

func (r *registry[T]) recycleImplicit() *implicitProducer[T] {
	for n := r.head.loadAcquire(); n != nil; n = n.next.loadAcquire() {
		if n.kind != producerImplicit || !n.inactive.LoadAcquire() {
			continue
		}
		if n.inactive.CompareAndSwapAcqRel(true, false) {
			return n.self.(*implicitProducer[T])
		}
	}
	return nil
}

// lookupImplicit finds (or returns nil if absent) the implicit producer
// bound to id.
func (r *registry[T]) lookupImplicit(id ProducerID) *implicitProducer[T] {
	return r.hash.loadAcquire().lookup(id)
}

// registerImplicit inserts id → p into the hash, growing it first if the
// load factor demands it (spec §4.6, single-flag-coordinated resize).
func (r *registry[T]) registerImplicit(id ProducerID, p *implicitProducer[T]) {
	for {
		tbl := r.hash.loadAcquire()
		if tbl.loadFactorOverHalf() {
			if r.resizing.CompareAndSwapAcqRel(false, true) {
				grown := newThreadHashTable[T](uint64(len(tbl.entries)) * 2)
				grown.prev.storeRelaxed(tbl)
				r.hash.storeRelease(grown)
				r.resizing.StoreRelease(false)
			}
			continue
		}
		if tbl.insert(id, p) {
			return
		}
		// Table somehow full despite load factor bookkeeping; force a
		// resize and retry.
		if r.resizing.CompareAndSwapAcqRel(false, true) {
			grown := newThreadHashTable[T](uint64(len(tbl.entries)) * 2)
			grown.prev.storeRelaxed(tbl)
			r.hash.storeRelease(grown)
			r.resizing.StoreRelease(false)
		}
	}
}

// releaseIdentity marks id reusable in the hash and its producer inactive,
// standing in for spec §4.6's thread-exit notification (see threadhash.go).
func (r *registry[T]) releaseIdentity(id ProducerID, p *implicitProducer[T]) {
	r.hash.loadAcquire().release(id)
	p.inactive.StoreRelease(true)
}

// all returns every live sub-queue base, oldest-last (list order), for the
// facade's dequeue scan.
func (r *registry[T]) all() []*producerBase[T] {
	var out []*producerBase[T]
	for n := r.head.loadAcquire(); n != nil; n = n.next.loadAcquire() {
		out = append(out, n)
	}
	return out
}

func (r *registry[T]) count() uint64 {
	var n uint64
	for p := r.head.loadAcquire(); p != nil; p = p.next.loadAcquire() {
		n++
	}
	return n
}
