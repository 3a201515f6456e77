package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/config"
	postgres_wrapper "github.com/joripage/matching-core/pkg/infra/postgres"
	kafkawrapper "github.com/joripage/matching-core/pkg/kafka_wrapper"
	"github.com/joripage/matching-core/pkg/logging"
	"github.com/joripage/matching-core/pkg/repo"
	"github.com/joripage/matching-core/pkg/worker"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
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

	if cfg.Kafka == nil || cfg.OmsDB == nil {
		logger.Fatal("kafka and oms_db config are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// init db
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.OmsDB, time.Minute)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}

	// init repo
	sqlRepo := repo.NewRepo(db)

	cg, err := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     cfg.Kafka.GroupID,
		Topic:       cfg.Kafka.EventTopic,
		WorkerCount: cfg.Kafka.WorkerCount,
		BatchSize:   cfg.Kafka.BatchSize,
		DLQTopic:    cfg.Kafka.DLQTopic,
	}, logger)
	if err != nil {
		logger.Fatal("init consumer group", zap.Error(err))
	}
	defer cg.Close() // nolint

	w := worker.NewWorker(sqlRepo, logger)
	logger.Info("worker started", zap.String("topic", cfg.Kafka.EventTopic), zap.String("group", cfg.Kafka.GroupID))
	if err := w.Start(ctx, cg); err != nil && ctx.Err() == nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}
