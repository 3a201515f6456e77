package main

import (
	"context"
	"flag"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joripage/matching-core/pkg/engine"
	redis_wrapper "github.com/joripage/matching-core/pkg/infra/redis"
	"github.com/joripage/matching-core/pkg/loadgen"
	"github.com/joripage/matching-core/pkg/marketdata"
	"github.com/joripage/matching-core/pkg/orderbook"
)

// Measures L2 snapshot publishing to Redis for a book built from random load.
func main() {
	var url string
	var total, workers, depth, orders int
	flag.StringVar(&url, "url", "redis://localhost:6379/0", "Redis url")
	flag.IntVar(&total, "n", 100_000, "number of snapshots to save")
	flag.IntVar(&workers, "workers", 16, "concurrent writers")
	flag.IntVar(&depth, "depth", 20, "L2 depth")
	flag.IntVar(&orders, "orders", 50_000, "commands used to build the book")
	flag.Parse()

	ctx := context.Background()
	rdb, err := redis_wrapper.InitRedis(ctx, &redis_wrapper.RedisConfig{ConnectionURL: url, PoolSize: workers})
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close() // nolint

	spec := &orderbook.SymbolSpec{SymbolID: 1, Symbol: "XBT_USD", Type: orderbook.SymbolTypeCurrencyExchangePair}
	e := engine.New(spec, nil)
	gen := loadgen.New(loadgen.DefaultConfig(spec.Symbol))
	for i := 0; i < orders; i++ {
		cmd := gen.Next()
		resp, err := e.Process(cmd)
		if err != nil {
			log.Fatal(err)
		}
		gen.Observe(cmd, resp)
	}
	snapshot := e.L2(depth)

	store := marketdata.NewL2Store(rdb, time.Minute)

	var next, failed int64
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.AddInt64(&next, 1) <= int64(total) {
				if err := store.Save(ctx, spec.Symbol, snapshot); err != nil {
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	loaded, err := store.Load(ctx, spec.Symbol)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Saved %d snapshots (%d failed) in %v", total, failed, elapsed)
	log.Printf("Throughput: %.2f snapshots/sec", float64(total)/elapsed.Seconds())
	log.Printf("Last snapshot: %s", loaded.Data)
}
