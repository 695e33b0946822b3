// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// lightweightSemaphore is a counting semaphore that spins a bounded number
// of times before parking, the rendition of spec §4.8's "lightweight
// semaphore": "spin up to MAX_SEMA_SPINS trying to try_wait(); on failure,
// fall back to a kernel sleep primitive". Go offers no raw futex; wake is
// a generation channel closed and replaced on every signal, the idiomatic
// substitute for a condition variable's broadcast (see DESIGN.md): unlike
// a token send on a channel, closing wakes every waiter that has already
// captured the generation, including ones that park after the close call
// has started, which is what makes this safe against the lost-wakeup
// window a plain non-blocking send leaves open.
type lightweightSemaphore struct {
	count    atomix.Int64
	maxSpins int

	mu   sync.Mutex
	wake chan struct{}
}

func newLightweightSemaphore(maxSpins int) *lightweightSemaphore {
	if maxSpins <= 0 {
		maxSpins = 10000
	}
	return &lightweightSemaphore{
		maxSpins: maxSpins,
		wake:     make(chan struct{}),
	}
}

// signal increases the count by n and wakes every parked waiter so each
// can re-race tryWait/tryWaitMany; n only bounds how many of them can
// actually succeed, not how many are woken.
func (s *lightweightSemaphore) signal(n int64) {
	if n <= 0 {
		return
	}
	s.count.AddAcqRel(n)
	s.mu.Lock()
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

// tryWait decrements the count by one if it is positive, returning
// whether it succeeded (spec §4.8 "try_wait()").
func (s *lightweightSemaphore) tryWait() bool {
	sw := spin.Wait{}
	for {
		c := s.count.LoadAcquire()
		if c <= 0 {
			return false
		}
		if s.count.CompareAndSwapAcqRel(c, c-1) {
			return true
		}
		sw.Once()
	}
}

// tryWaitMany decrements by up to max, returning the amount actually
// acquired, possibly zero (spec §4.8 "try_wait_many(n) may return any
// value in [0, n]").
func (s *lightweightSemaphore) tryWaitMany(max int64) int64 {
	sw := spin.Wait{}
	for {
		c := s.count.LoadAcquire()
		if c <= 0 {
			return 0
		}
		take := c
		if take > max {
			take = max
		}
		if s.count.CompareAndSwapAcqRel(c, c-take) {
			return take
		}
		sw.Once()
	}
}

// wait spins up to maxSpins iterations, then parks on the current wake
// generation until signaled or ctx is done (spec §4.8 "wait()"). The
// generation is captured before the re-check, not after, so a signal
// landing between the re-check and the park is never missed: either it
// lands before the capture (tryWait below sees the count directly) or it
// closes the exact generation just captured (the select wakes at once).
func (s *lightweightSemaphore) wait(ctx context.Context) bool {
	for i := 0; i < s.maxSpins; i++ {
		if s.tryWait() {
			return true
		}
	}
	for {
		s.mu.Lock()
		gen := s.wake
		s.mu.Unlock()
		if s.tryWait() {
			return true
		}
		select {
		case <-gen:
			// Spurious wake possible (another waiter grabbed it first); loop
			// back to tryWait under a fresh generation.
		case <-ctx.Done():
			return false
		}
	}
}

// waitFor bounds wait by d, per spec §4.8's "wait_for(timeout)": negative
// d waits indefinitely, zero is equivalent to tryWait, positive bounds the
// wait.
func (s *lightweightSemaphore) waitFor(d time.Duration) bool {
	if d == 0 {
		return s.tryWait()
	}
	if d < 0 {
		return s.wait(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.wait(ctx)
}

// waitMany acquires up to max, spinning/parking as needed, returning the
// number actually acquired before timeout (spec §4.8 "wait_many(n,
// timeout) returns the number actually acquired").
func (s *lightweightSemaphore) waitMany(max int64, d time.Duration) int64 {
	if max <= 0 {
		return 0
	}
	if n := s.tryWaitMany(max); n > 0 {
		return n
	}
	if !s.waitFor(d) {
		return 0
	}
	acquired := int64(1)
	if more := s.tryWaitMany(max - 1); more > 0 {
		acquired += more
	}
	return acquired
}
