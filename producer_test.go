// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "testing"

func TestProducerBaseReserveOneDequeueEmpty(t *testing.T) {
	var p producerBase[int]
	if _, ok := p.reserveOneDequeue(); ok {
		t.Fatalf("reserveOneDequeue on empty sub-queue: want failure")
	}
}

func TestProducerBaseReserveOneDequeueSequential(t *testing.T) {
	var p producerBase[int]
	p.tailIndex.StoreRelease(3)

	for want := uint64(0); want < 3; want++ {
		idx, ok := p.reserveOneDequeue()
		if !ok {
			t.Fatalf("reserveOneDequeue #%d: want success", want)
		}
		if idx != want {
			t.Fatalf("reserveOneDequeue #%d: got index %d, want %d", want, idx, want)
		}
	}
	if _, ok := p.reserveOneDequeue(); ok {
		t.Fatalf("reserveOneDequeue past tail: want failure")
	}
}

func TestProducerBaseReserveOneDequeueConcurrentNoDoubleClaim(t *testing.T) {
	var p producerBase[int]
	const n = 200
	p.tailIndex.StoreRelease(n)

	claimed := make([]int32, n)
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			idx, ok := p.reserveOneDequeue()
			if ok {
				claimed[idx]++
			}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	var total int32
	for _, c := range claimed {
		if c > 1 {
			t.Fatalf("index claimed more than once: count %d", c)
		}
		total += c
	}
	if total != n {
		t.Fatalf("total claimed: got %d, want %d", total, n)
	}
}

func TestProducerBaseReserveManyDequeueCapsAtAvailable(t *testing.T) {
	var p producerBase[int]
	p.tailIndex.StoreRelease(5)

	first, actual := p.reserveManyDequeue(10)
	if actual != 5 {
		t.Fatalf("reserveManyDequeue: got actual %d, want 5", actual)
	}
	if first != 0 {
		t.Fatalf("reserveManyDequeue: got firstIndex %d, want 0", first)
	}

	if _, actual := p.reserveManyDequeue(1); actual != 0 {
		t.Fatalf("reserveManyDequeue after exhaustion: got actual %d, want 0", actual)
	}
}

func TestProducerBaseReserveManyDequeueZeroMax(t *testing.T) {
	var p producerBase[int]
	p.tailIndex.StoreRelease(5)
	if _, actual := p.reserveManyDequeue(0); actual != 0 {
		t.Fatalf("reserveManyDequeue(0): got actual %d, want 0", actual)
	}
}

func TestProducerBaseSizeApprox(t *testing.T) {
	var p producerBase[int]
	p.tailIndex.StoreRelease(7)
	p.headIndex.StoreRelease(2)
	if got := p.sizeApprox(); got != 5 {
		t.Fatalf("sizeApprox: got %d, want 5", got)
	}
}
