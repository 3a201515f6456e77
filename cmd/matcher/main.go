package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/config"
	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/eventlog"
	redis_wrapper "github.com/joripage/matching-core/pkg/infra/redis"
	"github.com/joripage/matching-core/pkg/ingest"
	kafkawrapper "github.com/joripage/matching-core/pkg/kafka_wrapper"
	"github.com/joripage/matching-core/pkg/logging"
	"github.com/joripage/matching-core/pkg/marketdata"
	"github.com/joripage/matching-core/pkg/response"
)

func main() {
	var configFile string
	var pprofAddr string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&pprofAddr, "pprof", "localhost:6060", "pprof listen address, empty to disable")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	if pprofAddr != "" {
		go func() {
			_ = http.ListenAndServe(pprofAddr, nil)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := engine.NewManager(&engine.ManagerConfig{ValidateState: cfg.Engine.ValidateState}, logger)
	specs, err := cfg.SymbolSpecs()
	if err != nil {
		logger.Fatal("invalid symbol config", zap.Error(err))
	}
	for _, spec := range specs {
		if _, err := manager.Register(spec); err != nil {
			logger.Fatal("register symbol", zap.Error(err))
		}
		logger.Info("symbol registered", zap.String("symbol", spec.Symbol), zap.Stringer("type", spec.Type))
	}

	if cfg.Nats == nil {
		logger.Fatal("nats config is required")
	}
	nc, js, err := ingest.Connect(cfg.Nats.URL, logger)
	if err != nil {
		logger.Fatal("connect nats", zap.Error(err))
	}
	defer nc.Close()

	if err := ingest.EnsureStream(ctx, js, cfg.Nats.Stream, cfg.Nats.CommandSubject); err != nil {
		logger.Fatal("ensure stream", zap.Error(err))
	}

	consumer := ingest.NewCommandConsumer(js, ingest.Config{
		Stream:         cfg.Nats.Stream,
		CommandSubject: cfg.Nats.CommandSubject,
		Durable:        cfg.Nats.Durable,
		FetchBatch:     cfg.Nats.FetchBatch,
	}, manager, logger)

	if cfg.Kafka != nil {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RequiredAcks: kafka.RequireAll,
		}, logger)
		defer producer.Close() // nolint

		publisher := eventlog.NewPublisher(producer, cfg.Kafka.EventTopic, logger)
		consumer.OnBatch(func(ctx context.Context, cmds []*engine.Command, resps []*response.CommandResponse) {
			if err := publisher.Publish(ctx, cmds, resps); err != nil {
				logger.Error("publish execution events", zap.Int("commands", len(cmds)), zap.Error(err))
			}
		})
	}

	if cfg.Redis != nil {
		rdb, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("init redis", zap.Error(err))
		}
		defer rdb.Close() // nolint

		store := marketdata.NewL2Store(rdb, time.Duration(cfg.Engine.L2TTLSeconds)*time.Second)
		depth := cfg.Engine.L2Depth
		consumer.OnBatch(func(ctx context.Context, cmds []*engine.Command, _ []*response.CommandResponse) {
			touched := make(map[string]struct{})
			for _, cmd := range cmds {
				touched[cmd.Symbol] = struct{}{}
			}
			for symbol := range touched {
				e, ok := manager.Engine(symbol)
				if !ok {
					continue
				}
				if err := store.Save(ctx, symbol, e.L2(depth)); err != nil {
					logger.Warn("save l2 snapshot", zap.String("symbol", symbol), zap.Error(err))
				}
			}
		})
	}

	logger.Info("matcher started", zap.String("stream", cfg.Nats.Stream), zap.String("subject", cfg.Nats.CommandSubject))
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("command consumer stopped", zap.Error(err))
	}
	logger.Info("matcher stopped")
}
