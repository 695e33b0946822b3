// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates an enqueue could not proceed immediately: the
// sub-queue was full, or no block was available without allocating. It is
// advisory, not a failure. Dequeue reports an empty sample through its
// boolean result, not through this error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrSubqueueFull is returned, wrapping [ErrWouldBlock], when an enqueue
// would surpass the sub-queue's configured MaxSubqueueSize.
var ErrSubqueueFull = fmt.Errorf("%w: sub-queue at configured maximum", ErrWouldBlock)

// ErrAllocationFailed is returned, wrapping [ErrWouldBlock], when an
// enqueue needed a new block and the pool had none to hand out without
// allocating (AllowAlloc is false, or the call is a Try* form). Block
// index and hash growth never produce it. The queue remains usable; the
// element that failed was not enqueued.
var ErrAllocationFailed = fmt.Errorf("%w: allocation failed or disallowed", ErrWouldBlock)

// ErrImplicitDisabled is returned by token-less enqueue when the queue was
// configured with InitialImplicitProducerHashSize == 0.
var ErrImplicitDisabled = errors.New("cqueue: implicit production is disabled")

// ErrTokenInvalid is returned by the token-qualified enqueue operations
// when the [ProducerToken] is nil or not bound to a producer (such as a
// zero-value ProducerToken).
var ErrTokenInvalid = errors.New("cqueue: token is not bound to a producer")

// IsWouldBlock reports whether err indicates the operation would block
// (an enqueue declined for capacity or allocation). Delegates to
// [iox.IsWouldBlock] for wrapped-error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control-flow signal rather than a
// failure. Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition:
// nil, or any of the queue's advisory ErrWouldBlock variants.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
