// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

// Config controls algorithm selection and resource limits at queue
// construction (spec §6 "Configuration (all compile-time, chosen by the
// embedder)"). Go has no template non-type parameters, so every knob the
// original fixes at compile time is a runtime field here, set once and
// never changed afterward.
type Config struct {
	// BlockSize is the number of slots per block. Rounded up to a power
	// of two ≥ 2.
	BlockSize uint64

	// ExplicitBlockEmptyCounterThreshold picks flag-mode vs counter-mode
	// emptiness tracking (spec §4.1): blocks at or under this size use
	// per-slot flags, larger blocks use a single counter.
	ExplicitBlockEmptyCounterThreshold uint64

	// ExplicitInitialIndexSize / ImplicitInitialIndexSize are the
	// starting block-index capacities for the two producer kinds.
	// Rounded up to a power of two > 1.
	ExplicitInitialIndexSize uint64
	ImplicitInitialIndexSize uint64

	// InitialImplicitProducerHashSize sizes the thread-identity hash.
	// Zero disables implicit production entirely: EnqueueAuto,
	// TryEnqueueAuto and their bulk forms return ErrImplicitDisabled.
	InitialImplicitProducerHashSize uint64

	// InitialCapacity sizes the block pool's initial contiguous array,
	// in elements, rounded up to a block-size multiple.
	InitialCapacity uint64

	// ExplicitConsumerConsumptionQuotaBeforeRotate is the number of items
	// a consumer token draws from one producer before the facade rotates
	// it to the next (spec §4.7).
	ExplicitConsumerConsumptionQuotaBeforeRotate uint64

	// MaxSubqueueSize upper-bounds an explicit (token-bound) sub-queue's
	// outstanding element count, enforced at block granularity. Zero means
	// unbounded. Implicit sub-queues are not bounded by it.
	MaxSubqueueSize uint64

	// MaxSemaSpins bounds how many times the blocking wrapper's semaphore
	// spins on try_wait before falling back to a channel park (spec
	// §4.8).
	MaxSemaSpins int

	// AllowAlloc permits the block pool to heap-allocate blocks once its
	// initial array and free list are exhausted. When false, an enqueue
	// that needs a new block and finds none fails with ErrAllocationFailed
	// instead. Block indexes grow by doubling regardless of this setting.
	AllowAlloc bool

	// RecycleAllocatedBlocks controls whether heap-allocated blocks
	// return to the free list on release or are simply dropped (spec
	// §4.3).
	RecycleAllocatedBlocks bool
}

// DefaultConfig mirrors the original's usual compile-time defaults.
func DefaultConfig() Config {
	return Config{
		BlockSize:                           32,
		ExplicitBlockEmptyCounterThreshold:  32,
		ExplicitInitialIndexSize:            32,
		ImplicitInitialIndexSize:            32,
		InitialImplicitProducerHashSize:     32,
		InitialCapacity:                     6 * 32,
		ExplicitConsumerConsumptionQuotaBeforeRotate: 256,
		MaxSubqueueSize:                     0,
		MaxSemaSpins:                        10000,
		AllowAlloc:                          true,
		RecycleAllocatedBlocks:              false,
	}
}

func (c Config) normalized() Config {
	c.BlockSize = roundToPow2U64(c.BlockSize, 2)
	c.ExplicitBlockEmptyCounterThreshold = roundToPow2U64(c.ExplicitBlockEmptyCounterThreshold, 2)
	c.ExplicitInitialIndexSize = roundToPow2U64(c.ExplicitInitialIndexSize, 2)
	c.ImplicitInitialIndexSize = roundToPow2U64(c.ImplicitInitialIndexSize, 2)
	if c.InitialImplicitProducerHashSize != 0 {
		c.InitialImplicitProducerHashSize = roundToPow2U64(c.InitialImplicitProducerHashSize, 2)
	}
	if c.MaxSemaSpins <= 0 {
		c.MaxSemaSpins = 10000
	}
	return c
}

// roundToPow2U64 is the uint64 counterpart of the teacher's roundToPow2,
// floored at min.
func roundToPow2U64(v uint64, min uint64) uint64 {
	if v < min {
		v = min
	}
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}

// Builder offers the teacher's fluent queue-construction idiom on top of
// Config.
type Builder struct {
	cfg Config
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder {
	cfg := DefaultConfig()
	return &Builder{cfg: cfg}
}

func (b *Builder) BlockSize(n uint64) *Builder {
	b.cfg.BlockSize = n
	return b
}

func (b *Builder) InitialCapacity(n uint64) *Builder {
	b.cfg.InitialCapacity = n
	return b
}

func (b *Builder) MaxSubqueueSize(n uint64) *Builder {
	b.cfg.MaxSubqueueSize = n
	return b
}

func (b *Builder) DisableImplicitProducers() *Builder {
	b.cfg.InitialImplicitProducerHashSize = 0
	return b
}

func (b *Builder) DisallowAlloc() *Builder {
	b.cfg.AllowAlloc = false
	return b
}

func (b *Builder) RecycleAllocatedBlocks() *Builder {
	b.cfg.RecycleAllocatedBlocks = true
	return b
}

// Build constructs the queue with the accumulated configuration.
func Build[T any](b *Builder) *Queue[T] {
	return New[T](b.cfg)
}
