// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// pad is cache-line padding to prevent false sharing between hot atomic
// fields on adjacent cache lines. Mirrors the teacher's layout discipline
// in its queue variants.
type pad [64]byte

// padShort pads out a struct after a single 8-byte field to a cache line.
type padShort [64 - 8]byte

// atomicPtr is a lock-free, GC-safe pointer slot used by every
// pointer-chasing structure in this package: free-list nodes, producer-list
// nodes, block-index headers, hash-table buckets. code.hybscloud.com/atomix
// (the teacher's atomics shim) exposes scalar types with explicit
// Relaxed/Acquire/Release/AcqRel orderings but no generic pointer type, and
// the teacher's own pointer-queue variants (SPSCPtr, MPMCPtr, MPMCIndirect)
// stash payload pointers as atomix.Uintptr, safe there only because the
// caller retains the real *T alongside. The structures here are the *only*
// owners of their nodes, so a uintptr-only slot would let the garbage
// collector reclaim a node nothing else references. atomicPtr instead wraps
// the standard library's sync/atomic.Pointer[T], the GC-aware generic atomic
// pointer Go provides for exactly this case; see DESIGN.md for why no
// third-party library in the pack covers it. sync/atomic.Pointer only
// offers one consistency level (sequentially consistent), a safe superset
// of every ordering named in spec §4-§5, so the method names below map
// 1:1 onto it rather than distinguishing acquire from relaxed.
type atomicPtr[T any] struct {
	v atomic.Pointer[T]
}

func (p *atomicPtr[T]) loadAcquire() *T { return p.v.Load() }
func (p *atomicPtr[T]) loadRelaxed() *T { return p.v.Load() }

func (p *atomicPtr[T]) storeRelease(val *T) { p.v.Store(val) }
func (p *atomicPtr[T]) storeRelaxed(val *T) { p.v.Store(val) }

func (p *atomicPtr[T]) compareAndSwapAcqRel(old, new *T) bool {
	return p.v.CompareAndSwap(old, new)
}

// fetchOrU64 atomically ORs bits into *a and returns the prior value, with
// acquire-release ordering. code.hybscloud.com/atomix exposes Add and
// CompareAndSwap but no FetchOr, so the free list's "fetch-or the
// should-be-on-free-list bit" step (spec §4.2) is built from a CAS retry
// loop over atomix's own confirmed primitives, spinning with the teacher's
// spin.Wait exactly like every other CAS loop in this package.
func fetchOrU64(a *atomix.Uint64, bits uint64) uint64 {
	sw := spin.Wait{}
	for {
		old := a.LoadAcquire()
		if a.CompareAndSwapAcqRel(old, old|bits) {
			return old
		}
		sw.Once()
	}
}

// circularLessU64 reports whether a precedes b in the wrap-aware ("circular
// less-than") ordering used throughout this package for indices that are
// allowed to overflow uint64: a < b iff (a-b), reinterpreted as signed,
// is negative. See spec §9 "Circular index arithmetic".
func circularLessU64(a, b uint64) bool {
	return int64(a-b) < 0
}

// signedDivU64 divides a circular index difference by step, preserving sign
// across wrap-around. Used to recover a block offset from the (possibly
// negative, modulo-wrapped) difference between a queried base index and a
// reference base index.
func signedDivU64(diff uint64, step uint64) int64 {
	return int64(diff) / int64(step)
}
