// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"context"
	"time"

	"code.hybscloud.com/spin"
)

// BlockingQueue embeds the non-blocking [Queue] and pairs every enqueue
// with a semaphore signal and every successful dequeue with a semaphore
// wait (spec §4.8).
type BlockingQueue[T any] struct {
	*Queue[T]
	sema *lightweightSemaphore
}

// NewBlocking wraps a freshly constructed [Queue] with a blocking wrapper.
func NewBlocking[T any](cfg Config) *BlockingQueue[T] {
	return &BlockingQueue[T]{
		Queue: New[T](cfg),
		sema:  newLightweightSemaphore(cfg.normalized().MaxSemaSpins),
	}
}

// EnqueueAuto enqueues and signals the semaphore on success.
func (q *BlockingQueue[T]) EnqueueAuto(id ProducerID, val T) error {
	if err := q.Queue.EnqueueAuto(id, val); err != nil {
		return err
	}
	q.sema.signal(1)
	return nil
}

// EnqueueBulkAuto enqueues a batch and signals the count in one call.
func (q *BlockingQueue[T]) EnqueueBulkAuto(id ProducerID, vals []T) error {
	if err := q.Queue.EnqueueBulkAuto(id, vals); err != nil {
		return err
	}
	q.sema.signal(int64(len(vals)))
	return nil
}

// Enqueue enqueues via a producer token and signals the semaphore.
func (q *BlockingQueue[T]) Enqueue(pt *ProducerToken[T], val T) error {
	if err := q.Queue.Enqueue(pt, val); err != nil {
		return err
	}
	q.sema.signal(1)
	return nil
}

// EnqueueBulk enqueues a batch via a producer token and signals the count.
func (q *BlockingQueue[T]) EnqueueBulk(pt *ProducerToken[T], vals []T) error {
	if err := q.Queue.EnqueueBulk(pt, vals); err != nil {
		return err
	}
	q.sema.signal(int64(len(vals)))
	return nil
}

// WaitDequeue blocks until an element is available or ctx is done (spec
// §4.8 "wait_dequeue"). A successful semaphore wait only promises an
// element exists somewhere in the queue, not that this call's try_dequeue
// will see it immediately (the rotation heuristics may briefly hide it
// from this particular scan), so on a miss it retries the underlying
// dequeue a handful of times before giving the slot back.
func (q *BlockingQueue[T]) WaitDequeue(ctx context.Context) (val T, ok bool) {
	if !q.sema.wait(ctx) {
		return val, false
	}
	return q.waitDequeueRetry(func() (T, bool) { return q.Queue.DequeueAuto() })
}

// WaitDequeueTimed bounds WaitDequeue by d (spec §4.8 "wait_dequeue_timed",
// negative/zero/positive per the Timeout semantics in spec §4.8).
func (q *BlockingQueue[T]) WaitDequeueTimed(d time.Duration) (val T, ok bool) {
	ctx, cancel := timedContext(d)
	defer cancel()
	return q.WaitDequeue(ctx)
}

// WaitDequeueWithToken is WaitDequeue routed through a consumer token.
func (q *BlockingQueue[T]) WaitDequeueWithToken(ctx context.Context, ct *ConsumerToken[T]) (val T, ok bool) {
	if !q.sema.wait(ctx) {
		return val, false
	}
	return q.waitDequeueRetry(func() (T, bool) { return q.Queue.Dequeue(ct) })
}

// WaitDequeueTimedWithToken bounds WaitDequeueWithToken by d.
func (q *BlockingQueue[T]) WaitDequeueTimedWithToken(d time.Duration, ct *ConsumerToken[T]) (val T, ok bool) {
	ctx, cancel := timedContext(d)
	defer cancel()
	return q.WaitDequeueWithToken(ctx, ct)
}

// waitDequeueRetry retries try a handful of times per spec §4.8's note on
// the rotation heuristic's visibility lag, after the semaphore has already
// confirmed an element exists somewhere in the queue. If every retry
// misses, the acquired semaphore unit is signalled back before returning
// false.
func (q *BlockingQueue[T]) waitDequeueRetry(try func() (T, bool)) (val T, ok bool) {
	sw := spin.Wait{}
	for i := 0; i < 64; i++ {
		if v, got := try(); got {
			return v, true
		}
		sw.Once()
	}
	q.sema.signal(1)
	var zero T
	return zero, false
}

// WaitDequeueBulk blocks until at least one element is available, then
// drains up to as many elements as it acquired from the semaphore, at most
// len(out) (spec §4.8 "wait_dequeue_bulk").
func (q *BlockingQueue[T]) WaitDequeueBulk(ctx context.Context, out []T) int {
	acquired := q.sema.waitMany(int64(len(out)), waitManyRemaining(ctx))
	if acquired == 0 {
		return 0
	}
	n := q.Queue.DequeueBulkAuto(out[:acquired])
	if n < int(acquired) {
		q.sema.signal(acquired - int64(n))
	}
	return n
}

// WaitDequeueBulkTimed bounds WaitDequeueBulk by d.
func (q *BlockingQueue[T]) WaitDequeueBulkTimed(d time.Duration, out []T) int {
	ctx, cancel := timedContext(d)
	defer cancel()
	return q.WaitDequeueBulk(ctx, out)
}

// WaitDequeueBulkWithToken is WaitDequeueBulk routed through a consumer
// token.
func (q *BlockingQueue[T]) WaitDequeueBulkWithToken(ctx context.Context, ct *ConsumerToken[T], out []T) int {
	acquired := q.sema.waitMany(int64(len(out)), waitManyRemaining(ctx))
	if acquired == 0 {
		return 0
	}
	n := q.Queue.DequeueBulk(ct, out[:acquired])
	if n < int(acquired) {
		q.sema.signal(acquired - int64(n))
	}
	return n
}

// WaitDequeueBulkTimedWithToken bounds WaitDequeueBulkWithToken by d.
func (q *BlockingQueue[T]) WaitDequeueBulkTimedWithToken(d time.Duration, ct *ConsumerToken[T], out []T) int {
	ctx, cancel := timedContext(d)
	defer cancel()
	return q.WaitDequeueBulkWithToken(ctx, ct, out)
}

// timedContext implements spec §4.8's "Timeout semantics": negative means
// indefinite, zero non-blocking, positive bounds the wait.
func timedContext(d time.Duration) (context.Context, context.CancelFunc) {
	switch {
	case d < 0:
		return context.Background(), func() {}
	case d == 0:
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx, func() {}
	default:
		return context.WithTimeout(context.Background(), d)
	}
}

func waitManyRemaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return 0
	}
	if ctx.Err() != nil {
		return 0
	}
	return -1
}
