// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// token backs [ProducerToken]: it binds one explicit sub-queue for the
// token's whole lifetime (spec §3 "Producer/consumer tokens").
type token[T any] struct {
	producer *explicitProducer[T]
}

// ProducerToken binds one goroutine (or a caller-synchronized group of
// them, so long as only one enqueues at a time) to an explicit sub-queue,
// bypassing the implicit-producer hash lookup on every call.
type ProducerToken[T any] struct {
	t *token[T]
}

func newToken[T any](p *explicitProducer[T]) *token[T] {
	return &token[T]{producer: p}
}

// consumerToken backs [ConsumerToken]. Unlike a producer token it does not
// own a sub-queue: it tracks which existing producer (of either kind) the
// token is currently drawing from and the rotation bookkeeping of spec
// §4.7, both mutated only by the queue's Dequeue/DequeueBulk.
type consumerToken[T any] struct {
	current *producerBase[T]

	initialOffset         uint64
	lastKnownGlobalOffset uint64
	consumedSinceRotate   uint64
}

// ConsumerToken adds rotation state so that multiple consumer tokens
// spread their draw across producers instead of starving each other on
// the same one (spec §4.7).
type ConsumerToken[T any] struct {
	c *consumerToken[T]
}

func newConsumerToken[T any](globalOffset *atomix.Uint64) *consumerToken[T] {
	c := &consumerToken[T]{}
	c.initialOffset = globalOffset.LoadAcquire()
	c.lastKnownGlobalOffset = c.initialOffset
	return c
}
