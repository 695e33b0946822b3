// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"code.hybscloud.com/atomix"
	"github.com/cespare/xxhash/v2"
)

// ProducerID identifies the caller of an implicit enqueue/dequeue. Go has
// no equivalent of a native OS thread id a library can read unprompted
// (goroutines migrate between Ms freely), so callers supply their own
// stable identity, typically a worker-pool slot number or goroutine-local
// counter; see DESIGN.md for the Open Question this resolves. The zero
// value is reserved as "invalid" and never assigned to a live producer.
type ProducerID uint64

const invalidProducerID ProducerID = 0
const reusableProducerID ProducerID = ^ProducerID(0)

// hashProducerID folds a ProducerID to a table-sized bucket. MurmurHash3's
// finalizer (spec §4.6) has no first-class Go port in this corpus;
// xxhash is the grounded substitute (see SPEC_FULL.md DOMAIN STACK), an
// equally simple-to-call avalanche hash over the identity's bytes.
func hashProducerID(id ProducerID, mask uint64) uint64 {
	var buf [8]byte
	v := uint64(id)
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	return xxhash.Sum64(buf[:]) & mask
}

// threadHashEntry pairs an atomic ProducerID key with an atomic pointer to
// the owning implicit producer (spec §4.6).
type threadHashEntry[T any] struct {
	key   atomix.Uint64
	value atomicPtr[implicitProducer[T]]
}

// threadHashTable is the open-addressed (thread_id → implicit_producer)
// map of spec §4.6: linear-probed, grown by doubling with the old table
// retained as prev so readers holding a stale pointer still find their
// entry.
type threadHashTable[T any] struct {
	entries []threadHashEntry[T]
	mask    uint64
	used    atomix.Uint64

	prev atomicPtr[threadHashTable[T]]
}

func newThreadHashTable[T any](size uint64) *threadHashTable[T] {
	t := &threadHashTable[T]{
		entries: make([]threadHashEntry[T], size),
		mask:    size - 1,
	}
	for i := range t.entries {
		t.entries[i].key.StoreRelaxed(uint64(invalidProducerID))
	}
	return t
}

// lookup probes for id, walking the prev chain on a miss in this table.
func (t *threadHashTable[T]) lookup(id ProducerID) *implicitProducer[T] {
	for tbl := t; tbl != nil; tbl = tbl.prev.loadAcquire() {
		start := hashProducerID(id, tbl.mask)
		for i := uint64(0); i <= tbl.mask; i++ {
			slot := (start + i) & tbl.mask
			e := &tbl.entries[slot]
			k := ProducerID(e.key.LoadAcquire())
			if k == invalidProducerID {
				break // empty slot terminates the probe in this table
			}
			if k == id {
				return e.value.loadAcquire()
			}
		}
	}
	return nil
}

// insert CAS-swaps an invalid or reusable sentinel slot to id, returning
// false if the table is full (spec §4.6 "Insertion CAS-swaps
// invalid_thread_id ... to the new id").
func (t *threadHashTable[T]) insert(id ProducerID, p *implicitProducer[T]) bool {
	start := hashProducerID(id, t.mask)
	for i := uint64(0); i <= t.mask; i++ {
		slot := (start + i) & t.mask
		e := &t.entries[slot]
		for {
			k := e.key.LoadAcquire()
			if k != uint64(invalidProducerID) && k != uint64(reusableProducerID) {
				break
			}
			if e.key.CompareAndSwapAcqRel(k, uint64(id)) {
				e.value.storeRelease(p)
				t.used.AddAcqRel(1)
				return true
			}
		}
	}
	return false
}

// loadFactorOverHalf reports whether used has reached half of capacity,
// the resize trigger named in spec §4.6.
func (t *threadHashTable[T]) loadFactorOverHalf() bool {
	return t.used.LoadAcquire()*2 >= uint64(len(t.entries))
}

// release marks id's slot reusable across every table in the chain,
// standing in for spec §4.6's thread-exit notification: Go exposes no
// hook for a goroutine's "exit", so this runs only when called explicitly,
// through registry.releaseIdentity. No exported method of [Queue] reaches
// it, so an implicit producer stays bound to its ProducerID for the
// queue's lifetime.
func (t *threadHashTable[T]) release(id ProducerID) {
	for tbl := t; tbl != nil; tbl = tbl.prev.loadAcquire() {
		start := hashProducerID(id, tbl.mask)
		for i := uint64(0); i <= tbl.mask; i++ {
			slot := (start + i) & tbl.mask
			e := &tbl.entries[slot]
			k := e.key.LoadAcquire()
			if k == uint64(invalidProducerID) {
				break
			}
			if k == uint64(id) {
				e.key.CompareAndSwapAcqRel(k, uint64(reusableProducerID))
				return
			}
		}
	}
}
