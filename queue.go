// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "code.hybscloud.com/atomix"

// Queue is the lock-free, bounded-growth multi-producer multi-consumer
// queue facade (spec §4.7). It routes each call to a per-producer
// sub-queue: implicit (keyed by caller-supplied [ProducerID]) for the
// token-free operations, explicit (bound to a [ProducerToken]) for the
// token-carrying ones.
type Queue[T any] struct {
	cfg Config

	pool *blockPool[T]
	reg  *registry[T]

	tokenOffsetCounter atomix.Uint64

	globalExplicitConsumerOffset atomix.Uint64
}

// New constructs a queue with the given configuration, normalizing power
// of two fields (spec §5 "Queue created with an initial capacity ->
// initial block pool allocated, implicit producer hash initialized,
// producer list empty").
func New[T any](cfg Config) *Queue[T] {
	cfg = cfg.normalized()
	initialBlocks := int((cfg.InitialCapacity + cfg.BlockSize - 1) / cfg.BlockSize)
	if initialBlocks < 1 {
		initialBlocks = 1
	}
	q := &Queue[T]{
		cfg:  cfg,
		pool: newBlockPool[T](initialBlocks, cfg.BlockSize, cfg.ExplicitBlockEmptyCounterThreshold, cfg.AllowAlloc, cfg.RecycleAllocatedBlocks),
	}
	hashSize := cfg.InitialImplicitProducerHashSize
	if hashSize == 0 {
		hashSize = 1 // registry always needs a non-zero-size table internally; implicit production stays gated by cfg.
	}
	q.reg = newRegistry[T](hashSize)
	return q
}

func (q *Queue[T]) implicitEnabled() bool { return q.cfg.InitialImplicitProducerHashSize != 0 }

// implicitProducerFor returns (creating lazily if needed) the implicit
// sub-queue bound to id.
func (q *Queue[T]) implicitProducerFor(id ProducerID) (*implicitProducer[T], error) {
	if !q.implicitEnabled() {
		return nil, ErrImplicitDisabled
	}
	if p := q.reg.lookupImplicit(id); p != nil {
		return p, nil
	}
	if p := q.reg.recycleImplicit(); p != nil {
		q.reg.registerImplicit(id, p)
		return p, nil
	}
	p := newImplicitProducer[T](q.pool, q.cfg.BlockSize, q.cfg.ImplicitInitialIndexSize)
	q.reg.push(&p.producerBase)
	q.reg.registerImplicit(id, p)
	return p, nil
}

// NewProducerToken binds a new explicit sub-queue, recycling an inactive
// one from the registry if available (spec §4.6 "Recycling").
func (q *Queue[T]) NewProducerToken() *ProducerToken[T] {
	p := q.reg.recycleExplicit()
	if p == nil {
		p = newExplicitProducer[T](q.pool, q.cfg.BlockSize, q.cfg.ExplicitInitialIndexSize, q.cfg.MaxSubqueueSize)
		q.reg.push(&p.producerBase)
	}
	q.tokenOffsetCounter.AddAcqRel(1)
	return &ProducerToken[T]{t: newToken[T](p)}
}

// NewConsumerToken constructs a rotation-aware consumer token. It does not
// create a sub-queue of its own; it starts out pointed at whichever
// producer currently heads the registry (if any) and rotates across the
// existing producer list as consumption proceeds (spec §4.7).
func (q *Queue[T]) NewConsumerToken() *ConsumerToken[T] {
	c := newConsumerToken[T](&q.globalExplicitConsumerOffset)
	c.current = q.reg.head.loadAcquire()
	return &ConsumerToken[T]{c: c}
}

// EnqueueAuto enqueues without a token, routing to id's implicit
// sub-queue, created lazily (spec §4.7 "Enqueue without token"). May
// allocate, subject to Config.AllowAlloc.
func (q *Queue[T]) EnqueueAuto(id ProducerID, val T) error {
	return q.enqueueAuto(id, val, true)
}

// TryEnqueueAuto is EnqueueAuto without the allocation fallback: it fails
// with ErrAllocationFailed instead of heap-allocating a new block when the
// pool has none free (spec §6: "try" family never allocates). The block
// index still grows when it fills.
func (q *Queue[T]) TryEnqueueAuto(id ProducerID, val T) error {
	return q.enqueueAuto(id, val, false)
}

func (q *Queue[T]) enqueueAuto(id ProducerID, val T, tryAllocate bool) error {
	p, err := q.implicitProducerFor(id)
	if err != nil {
		return err
	}
	return p.enqueue(val, tryAllocate)
}

// EnqueueBulkAuto is the bulk counterpart of EnqueueAuto.
func (q *Queue[T]) EnqueueBulkAuto(id ProducerID, vals []T) error {
	return q.enqueueBulkAuto(id, vals, true)
}

// TryEnqueueBulkAuto is the bulk counterpart of TryEnqueueAuto.
func (q *Queue[T]) TryEnqueueBulkAuto(id ProducerID, vals []T) error {
	return q.enqueueBulkAuto(id, vals, false)
}

func (q *Queue[T]) enqueueBulkAuto(id ProducerID, vals []T, tryAllocate bool) error {
	p, err := q.implicitProducerFor(id)
	if err != nil {
		return err
	}
	return p.enqueueBulk(vals, tryAllocate)
}

// Enqueue places val on pt's bound explicit sub-queue (spec §4.7 "Enqueue
// with token"). May allocate, subject to Config.AllowAlloc.
func (q *Queue[T]) Enqueue(pt *ProducerToken[T], val T) error {
	return q.enqueue(pt, val, true)
}

// TryEnqueue is Enqueue without the allocation fallback.
func (q *Queue[T]) TryEnqueue(pt *ProducerToken[T], val T) error {
	return q.enqueue(pt, val, false)
}

func (q *Queue[T]) enqueue(pt *ProducerToken[T], val T, tryAllocate bool) error {
	if pt == nil || pt.t == nil || pt.t.producer == nil {
		return ErrTokenInvalid
	}
	return pt.t.producer.enqueue(val, tryAllocate)
}

// EnqueueBulk is the bulk counterpart of Enqueue.
func (q *Queue[T]) EnqueueBulk(pt *ProducerToken[T], vals []T) error {
	return q.enqueueBulk(pt, vals, true)
}

// TryEnqueueBulk is the bulk counterpart of TryEnqueue.
func (q *Queue[T]) TryEnqueueBulk(pt *ProducerToken[T], vals []T) error {
	return q.enqueueBulk(pt, vals, false)
}

func (q *Queue[T]) enqueueBulk(pt *ProducerToken[T], vals []T, tryAllocate bool) error {
	if pt == nil || pt.t == nil || pt.t.producer == nil {
		return ErrTokenInvalid
	}
	return pt.t.producer.enqueueBulk(vals, tryAllocate)
}

// DequeueAuto scans the producer list heuristically and returns one
// element (spec §4.7 "Dequeue without token": "selects up to the three
// largest non-empty sub-queues by size_approx(); attempts the largest
// first. If it is spuriously empty, sweep the remaining producers in list
// order").
func (q *Queue[T]) DequeueAuto() (val T, ok bool) {
	all := q.reg.all()
	if len(all) == 0 {
		return val, false
	}
	best := topKBySize(all, 3)
	for _, b := range best {
		if v, ok2 := dequeueFromBase[T](b); ok2 {
			return v, true
		}
	}
	for _, b := range all {
		if v, ok2 := dequeueFromBase[T](b); ok2 {
			return v, true
		}
	}
	return val, false
}

// TryDequeueAuto is an alias of DequeueAuto: dequeue never allocates, so
// the "try" and "normal" forms coincide (spec §6 operation surface still
// names both).
func (q *Queue[T]) TryDequeueAuto() (val T, ok bool) { return q.DequeueAuto() }

// DequeueBulkAuto accumulates across producers until len(out) is reached
// or every producer has been visited (spec §4.7 "Bulk dequeue").
func (q *Queue[T]) DequeueBulkAuto(out []T) int {
	all := q.reg.all()
	n := 0
	for _, b := range all {
		if n >= len(out) {
			break
		}
		n += bulkDequeueFromBase[T](b, out[n:])
	}
	return n
}

// Dequeue pops via ct's rotation-aware binding (spec §4.7 "Dequeue with
// token").
func (q *Queue[T]) Dequeue(ct *ConsumerToken[T]) (val T, ok bool) {
	if ct == nil || ct.c == nil {
		return val, false
	}
	q.rotateIfDue(ct.c)
	if ct.c.current != nil {
		if v, got := dequeueFromBase[T](ct.c.current); got {
			q.noteConsumed(ct.c, 1)
			return v, true
		}
	}
	q.rotate(ct.c)
	if ct.c.current != nil {
		if v, got := dequeueFromBase[T](ct.c.current); got {
			q.noteConsumed(ct.c, 1)
			return v, true
		}
	}
	return val, false
}

// TryDequeue is an alias of Dequeue (see TryDequeueAuto).
func (q *Queue[T]) TryDequeue(ct *ConsumerToken[T]) (val T, ok bool) { return q.Dequeue(ct) }

// DequeueBulk is the bulk counterpart of Dequeue.
func (q *Queue[T]) DequeueBulk(ct *ConsumerToken[T], out []T) int {
	if ct == nil || ct.c == nil {
		return 0
	}
	q.rotateIfDue(ct.c)
	n := 0
	if ct.c.current != nil {
		n = bulkDequeueFromBase[T](ct.c.current, out)
	}
	if n == 0 {
		q.rotate(ct.c)
		if ct.c.current != nil {
			n = bulkDequeueFromBase[T](ct.c.current, out)
		}
	}
	q.noteConsumed(ct.c, uint64(n))
	return n
}

// TryDequeueBulk is an alias of DequeueBulk (see TryDequeueAuto).
func (q *Queue[T]) TryDequeueBulk(ct *ConsumerToken[T], out []T) int {
	return q.DequeueBulk(ct, out)
}

// noteConsumed advances the per-queue global rotation counter every
// Config.ExplicitConsumerConsumptionQuotaBeforeRotate items consumed by
// any token (spec §4.7).
func (q *Queue[T]) noteConsumed(c *consumerToken[T], n uint64) {
	if n == 0 {
		return
	}
	c.consumedSinceRotate += n
	quota := q.cfg.ExplicitConsumerConsumptionQuotaBeforeRotate
	if quota == 0 {
		return
	}
	for c.consumedSinceRotate >= quota {
		c.consumedSinceRotate -= quota
		q.globalExplicitConsumerOffset.AddAcqRel(1)
	}
}

// rotateIfDue walks c forward in the producer list if its cached global
// offset has fallen behind the queue's, per spec §4.7.
func (q *Queue[T]) rotateIfDue(c *consumerToken[T]) {
	global := q.globalExplicitConsumerOffset.LoadAcquire()
	if global == c.lastKnownGlobalOffset {
		return
	}
	steps := global - c.lastKnownGlobalOffset
	c.lastKnownGlobalOffset = global
	q.advance(c, steps)
}

// rotate forces a single-step advance, used after a spurious empty
// dequeue.
func (q *Queue[T]) rotate(c *consumerToken[T]) {
	q.advance(c, 1)
	c.consumedSinceRotate = 0
}

func (q *Queue[T]) advance(c *consumerToken[T], steps uint64) {
	count := q.reg.count()
	if count == 0 {
		c.current = nil
		return
	}
	steps %= count
	if steps == 0 {
		if c.current == nil {
			c.current = q.reg.head.loadAcquire()
		}
		return
	}
	base := c.current
	if base == nil {
		base = q.reg.head.loadAcquire()
	}
	for i := uint64(0); i < steps && base != nil; i++ {
		next := base.next.loadAcquire()
		if next == nil {
			next = q.reg.head.loadAcquire()
		}
		base = next
	}
	c.current = base
}

// SizeApprox returns a racy, instantaneous sum of every sub-queue's
// sizeApprox (spec §8.3: exact only at quiescence).
func (q *Queue[T]) SizeApprox() uint64 {
	var total uint64
	for _, b := range q.reg.all() {
		total += b.sizeApprox()
	}
	return total
}

// IsLockFree reports whether the atomics this package depends on
// (64-bit integers, pointers, booleans) are lock-free on this platform
// (spec §4.7 "Lock-freedom query"). code.hybscloud.com/atomix and Go's
// sync/atomic are both lock-free on every platform Go supports in
// practice, so this is true unconditionally; it is still exposed as a
// method, not a constant, matching the original's runtime-queryable API.
func (q *Queue[T]) IsLockFree() bool {
	return true
}

// producerDiag is one producer list entry as reported by debugProducers.
type producerDiag struct {
	kind producerKind
	size uint64
}

// debugProducers walks the producer list in the same order DequeueAuto
// scans it, for tests that need to assert on list shape or rotation
// rather than just aggregate counts.
func (q *Queue[T]) debugProducers() []producerDiag {
	all := q.reg.all()
	out := make([]producerDiag, len(all))
	for i, b := range all {
		out[i] = producerDiag{kind: b.kind, size: b.sizeApprox()}
	}
	return out
}

func dequeueFromBase[T any](b *producerBase[T]) (T, bool) {
	switch b.kind {
	case producerExplicit:
		return b.self.(*explicitProducer[T]).dequeue()
	default:
		return b.self.(*implicitProducer[T]).dequeue()
	}
}

func bulkDequeueFromBase[T any](b *producerBase[T], out []T) int {
	switch b.kind {
	case producerExplicit:
		return b.self.(*explicitProducer[T]).dequeueBulk(out)
	default:
		return b.self.(*implicitProducer[T]).dequeueBulk(out)
	}
}

// topKBySize returns up to k entries of all with the largest sizeApprox,
// largest first (spec §4.7 "selects up to the three largest non-empty
// sub-queues").
func topKBySize[T any](all []*producerBase[T], k int) []*producerBase[T] {
	type scored struct {
		b    *producerBase[T]
		size uint64
	}
	scoredAll := make([]scored, 0, len(all))
	for _, b := range all {
		if sz := b.sizeApprox(); sz > 0 {
			scoredAll = append(scoredAll, scored{b, sz})
		}
	}
	for i := 1; i < len(scoredAll); i++ {
		for j := i; j > 0 && scoredAll[j].size > scoredAll[j-1].size; j-- {
			scoredAll[j], scoredAll[j-1] = scoredAll[j-1], scoredAll[j]
		}
	}
	if k > len(scoredAll) {
		k = len(scoredAll)
	}
	out := make([]*producerBase[T], k)
	for i := 0; i < k; i++ {
		out[i] = scoredAll[i].b
	}
	return out
}
