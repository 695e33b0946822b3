// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestRegistryPushAndAll(t *testing.T) {
	r := newRegistry[int](8)
	pool := newBlockPool[int](4, 4, 32, true, false)
	p1 := newExplicitProducer[int](pool, 4, 4, 0)
	p2 := newExplicitProducer[int](pool, 4, 4, 0)

	r.push(&p1.producerBase)
	r.push(&p2.producerBase)

	if got := r.count(); got != 2 {
		t.Fatalf("count: got %d, want 2", got)
	}
	all := r.all()
	if len(all) != 2 {
		t.Fatalf("all: got %d entries, want 2", len(all))
	}
}

func TestRegistryRecycleExplicitOnlyReturnsInactive(t *testing.T) {
	r := newRegistry[int](8)
	pool := newBlockPool[int](4, 4, 32, true, false)
	p1 := newExplicitProducer[int](pool, 4, 4, 0)
	r.push(&p1.producerBase)

	if r.recycleExplicit() != nil {
		t.Fatalf("recycleExplicit on active producer: want nil")
	}

	p1.inactive.StoreRelease(true)
	got := r.recycleExplicit()
	if got != p1 {
		t.Fatalf("recycleExplicit: got %p, want %p", got, p1)
	}
	if p1.inactive.LoadAcquire() {
		t.Fatalf("recycleExplicit: want inactive cleared after recycling")
	}
	if r.recycleExplicit() != nil {
		t.Fatalf("recycleExplicit after reactivation: want nil, no inactive producers left")
	}
}

func TestRegistryRecycleImplicitIgnoresExplicitKind(t *testing.T) {
	r := newRegistry[int](8)
	pool := newBlockPool[int](4, 4, 32, true, false)
	ep := newExplicitProducer[int](pool, 4, 4, 0)
	ep.inactive.StoreRelease(true)
	r.push(&ep.producerBase)

	if r.recycleImplicit() != nil {
		t.Fatalf("recycleImplicit: want nil, only an inactive explicit producer is registered")
	}
}

func TestRegistryImplicitRegisterLookupRelease(t *testing.T) {
	r := newRegistry[int](4)
	pool := newBlockPool[int](4, 4, 32, true, false)
	ip := newImplicitProducer[int](pool, 4, 4)

	const id ProducerID = 42
	r.registerImplicit(id, ip)
	if got := r.lookupImplicit(id); got != ip {
		t.Fatalf("lookupImplicit: got %p, want %p", got, ip)
	}

	r.releaseIdentity(id, ip)
	if !ip.inactive.LoadAcquire() {
		t.Fatalf("releaseIdentity: want producer marked inactive")
	}
	if r.lookupImplicit(id) != nil {
		t.Fatalf("lookupImplicit after release: want nil")
	}
}

func TestRegistryImplicitRegisterGrowsHash(t *testing.T) {
	r := newRegistry[int](2)
	pool := newBlockPool[int](8, 4, 32, true, false)

	producers := make([]*implicitProducer[int], 6)
	for i := range producers {
		producers[i] = newImplicitProducer[int](pool, 4, 4)
		r.registerImplicit(ProducerID(i+1), producers[i])
	}
	for i, p := range producers {
		if got := r.lookupImplicit(ProducerID(i + 1)); got != p {
			t.Fatalf("lookupImplicit(%d) after growth: got %p, want %p", i+1, got, p)
		}
	}
}
