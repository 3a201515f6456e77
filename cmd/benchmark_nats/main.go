package main

import (
	"context"
	"encoding/json"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/ingest"
	"github.com/joripage/matching-core/pkg/loadgen"
	"github.com/joripage/matching-core/pkg/logging"
)

// Publishes random commands to the command subject the matcher consumes.
func main() {
	var url, stream, subject, symbol string
	var total int
	flag.StringVar(&url, "url", "nats://localhost:4222", "NATS url")
	flag.StringVar(&stream, "stream", "ORDERS", "JetStream stream")
	flag.StringVar(&subject, "subject", "ORDERS.commands", "command subject")
	flag.StringVar(&symbol, "symbol", "XBT_USD", "symbol to trade")
	flag.IntVar(&total, "n", 100_000, "number of commands")
	flag.Parse()

	logger, err := logging.NewLogger(logging.INFO)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	nc, js, err := ingest.Connect(url, logger)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer nc.Close()

	if err := ingest.EnsureStream(ctx, js, stream, subject); err != nil {
		logger.Fatal("ensure stream", zap.Error(err))
	}

	gen := loadgen.New(loadgen.DefaultConfig(symbol))
	start := time.Now()
	var failed int
	for i := 0; i < total; i++ {
		cmd := gen.Next()
		cmd.Timestamp = time.Now().UnixNano()
		data, err := json.Marshal(cmd)
		if err != nil {
			logger.Fatal("marshal", zap.Error(err))
		}
		if _, err := js.PublishAsync(subject, data); err != nil {
			failed++
		}
	}

	select {
	case <-js.PublishAsyncComplete():
	case <-time.After(30 * time.Second):
		logger.Warn("timeout waiting for acks", zap.Int("pending", js.PublishAsyncPending()))
	}

	elapsed := time.Since(start)
	logger.Info("published commands",
		zap.Int("total", total),
		zap.Int("failed", failed),
		zap.Duration("elapsed", elapsed),
		zap.Float64("msgs_per_sec", float64(total)/elapsed.Seconds()),
	)
}
