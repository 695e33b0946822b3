// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"context"
	"testing"
	"time"
)

func TestLightweightSemaphoreSignalThenTryWait(t *testing.T) {
	s := newLightweightSemaphore(4)
	if s.tryWait() {
		t.Fatalf("tryWait on empty semaphore: want false")
	}
	s.signal(2)
	if !s.tryWait() {
		t.Fatalf("tryWait after signal(2) #1: want true")
	}
	if !s.tryWait() {
		t.Fatalf("tryWait after signal(2) #2: want true")
	}
	if s.tryWait() {
		t.Fatalf("tryWait after draining: want false")
	}
}

func TestLightweightSemaphoreTryWaitMany(t *testing.T) {
	s := newLightweightSemaphore(4)
	s.signal(5)
	got := s.tryWaitMany(3)
	if got != 3 {
		t.Fatalf("tryWaitMany(3): got %d, want 3", got)
	}
	got = s.tryWaitMany(10)
	if got != 2 {
		t.Fatalf("tryWaitMany(10) remaining: got %d, want 2", got)
	}
}

func TestLightweightSemaphoreWaitTimesOut(t *testing.T) {
	s := newLightweightSemaphore(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if s.wait(ctx) {
		t.Fatalf("wait on empty semaphore with expiring context: want false")
	}
}

func TestLightweightSemaphoreWaitWakesOnSignal(t *testing.T) {
	s := newLightweightSemaphore(4)
	result := make(chan bool, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		result <- s.wait(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	s.signal(1)

	select {
	case got := <-result:
		if !got {
			t.Fatalf("wait after signal: want true")
		}
	case <-time.After(time.Second):
		t.Fatalf("wait did not return after signal")
	}
}

func TestLightweightSemaphoreWaitForZeroIsNonBlocking(t *testing.T) {
	s := newLightweightSemaphore(4)
	if s.waitFor(0) {
		t.Fatalf("waitFor(0) on empty semaphore: want false")
	}
	s.signal(1)
	if !s.waitFor(0) {
		t.Fatalf("waitFor(0) after signal: want true")
	}
}

func TestLightweightSemaphoreWaitManyPartial(t *testing.T) {
	s := newLightweightSemaphore(4)
	s.signal(2)
	got := s.waitMany(5, 20*time.Millisecond)
	if got != 2 {
		t.Fatalf("waitMany(5): got %d, want 2", got)
	}
}
