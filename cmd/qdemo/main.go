// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command qdemo drives a configurable producer/consumer soak against
// cqueue and reports produced/consumed counts, allocation-failure-injection
// counts, and elapsed time. It is a demonstration harness, not part of the
// library's public surface.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	cqueue "github.com/WONGZEONJYU/go-concurrentqueue"
)

type cli struct {
	Producers    int           `help:"Number of concurrent producer goroutines." default:"4"`
	Consumers    int           `help:"Number of concurrent consumer goroutines." default:"4"`
	ItemsEach    int           `help:"Items each producer enqueues." default:"50000"`
	BlockSize    uint64        `help:"Block size (rounded up to a power of two)." default:"32"`
	MaxSubqueue  uint64        `help:"Per-producer sub-queue cap for token (explicit) producers, 0 for unbounded." default:"0"`
	DisallowAlloc bool         `help:"Inject allocation failures: cap the pool at InitialCapacity, never grow." name:"disallow-alloc"`
	InitialCap   uint64        `help:"Block pool initial capacity in elements." default:"4096"`
	Soak         time.Duration `help:"If non-zero, ignore ItemsEach and run this long instead." default:"0s"`
	UseTokens    bool          `help:"Bind every producer to an explicit token instead of the auto (implicit) API; consumers always use a consumer token."`
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	undo, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
	defer undo()
	if err != nil {
		logger.Warn("maxprocs.Set failed, GOMAXPROCS left unchanged", zap.Error(err))
	}

	var c cli
	kong.Parse(&c,
		kong.Name("qdemo"),
		kong.Description("Soak-tests the lock-free MPMC queue with injectable allocation failure."),
	)

	cfg := cqueue.DefaultConfig()
	cfg.BlockSize = c.BlockSize
	cfg.MaxSubqueueSize = c.MaxSubqueue
	cfg.InitialCapacity = c.InitialCap
	cfg.AllowAlloc = !c.DisallowAlloc

	q := cqueue.NewBlocking[int64](cfg)

	if err := run(q, c, logger); err != nil {
		logger.Error("soak failed", zap.Error(err))
		os.Exit(1)
	}
}

type stats struct {
	produced      int64
	consumed      int64
	allocFailures int64
}

func run(q *cqueue.BlockingQueue[int64], c cli, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	if c.Soak > 0 {
		var soakCancel context.CancelFunc
		ctx, soakCancel = context.WithTimeout(ctx, c.Soak)
		defer soakCancel()
	}
	defer cancel()

	var st stats
	var wg sync.WaitGroup

	logger.Info("starting soak",
		zap.Int("producers", c.Producers),
		zap.Int("consumers", c.Consumers),
		zap.Bool("use_tokens", c.UseTokens),
		zap.Bool("disallow_alloc", c.DisallowAlloc),
		zap.Duration("soak", c.Soak),
	)

	start := time.Now()

	var pwg sync.WaitGroup
	for i := 0; i < c.Producers; i++ {
		pwg.Add(1)
		go runProducer(ctx, &pwg, q, int64(i+1), c, &st)
	}
	for i := 0; i < c.Consumers; i++ {
		wg.Add(1)
		go runConsumer(ctx, &wg, q, &st)
	}

	if c.Soak <= 0 {
		// Fixed-size run: wait for producers, then drain what's left.
		pwg.Wait()
		for c.Consumers > 0 && atomic.LoadInt64(&st.consumed) < atomic.LoadInt64(&st.produced) {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
		wg.Wait()
	} else {
		<-ctx.Done()
		pwg.Wait()
		wg.Wait()
	}

	elapsed := time.Since(start)
	logger.Info("soak complete",
		zap.Int64("produced", atomic.LoadInt64(&st.produced)),
		zap.Int64("consumed", atomic.LoadInt64(&st.consumed)),
		zap.Int64("alloc_failures", atomic.LoadInt64(&st.allocFailures)),
		zap.Uint64("size_approx_at_end", q.SizeApprox()),
		zap.Duration("elapsed", elapsed),
	)
	fmt.Printf("produced=%d consumed=%d alloc_failures=%d elapsed=%s\n",
		atomic.LoadInt64(&st.produced), atomic.LoadInt64(&st.consumed), atomic.LoadInt64(&st.allocFailures), elapsed)
	return nil
}

func runProducer(ctx context.Context, wg *sync.WaitGroup, q *cqueue.BlockingQueue[int64], id int64, c cli, st *stats) {
	defer wg.Done()

	var pt *cqueue.ProducerToken[int64]
	if c.UseTokens {
		pt = q.NewProducerToken()
	}

	enqueue := func(v int64) error {
		if pt != nil {
			return q.Enqueue(pt, v)
		}
		return q.EnqueueAuto(cqueue.ProducerID(id), v)
	}

	n := 0
	for c.Soak > 0 || n < c.ItemsEach {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := enqueue(id*1_000_000 + int64(n)); err != nil {
			atomic.AddInt64(&st.allocFailures, 1)
			continue
		}
		atomic.AddInt64(&st.produced, 1)
		n++
	}
}

func runConsumer(ctx context.Context, wg *sync.WaitGroup, q *cqueue.BlockingQueue[int64], st *stats) {
	defer wg.Done()

	ct := q.NewConsumerToken()
	for {
		if _, ok := q.WaitDequeueTimedWithToken(50*time.Millisecond, ct); ok {
			atomic.AddInt64(&st.consumed, 1)
			continue
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
