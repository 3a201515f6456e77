package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/config"
	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/eventlog"
	"github.com/joripage/matching-core/pkg/fixgateway"
	kafkawrapper "github.com/joripage/matching-core/pkg/kafka_wrapper"
	"github.com/joripage/matching-core/pkg/logging"
	"github.com/joripage/matching-core/pkg/response"
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

	if cfg.Fix == nil {
		logger.Fatal("fix config is required")
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
	}

	if cfg.Kafka != nil {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		}, logger)
		defer producer.Close() // nolint

		publisher := eventlog.NewPublisher(producer, cfg.Kafka.EventTopic, logger)
		manager.RegisterResultCallback(func(cmd *engine.Command, resp *response.CommandResponse) {
			if err := publisher.Publish(ctx, []*engine.Command{cmd}, []*response.CommandResponse{resp}); err != nil {
				logger.Warn("publish execution events", zap.Stringer("cmd", cmd), zap.Error(err))
			}
		})
	}

	var rules []fixgateway.RiskRule
	if cfg.Fix.TickSizeFile != "" {
		tickRule, err := fixgateway.NewTickSizeRuleFromFile(cfg.Fix.TickSizeFile)
		if err != nil {
			logger.Fatal("load tick sizes", zap.Error(err))
		}
		rules = append(rules, tickRule)
	}
	if len(cfg.Fix.PriceBands) > 0 {
		bands := make(map[string]fixgateway.PriceBand, len(cfg.Fix.PriceBands))
		for symbol, b := range cfg.Fix.PriceBands {
			bands[symbol] = fixgateway.PriceBand{Floor: b.Floor, Ceil: b.Ceil}
		}
		rules = append(rules, fixgateway.NewLimitPriceRule(bands))
	}

	gateway := fixgateway.NewGateway(manager, fixgateway.NewSessionReporter(logger), logger, rules...)
	acceptor, err := fixgateway.Start(cfg.Fix.ConfigFilepath, fixgateway.AppConfig{
		EnableQueue:      !cfg.Fix.EnableShardQueue,
		EnableShardQueue: cfg.Fix.EnableShardQueue,
		ShardCount:       cfg.Fix.ShardCount,
	}, gateway, logger)
	if err != nil {
		logger.Fatal("start fix acceptor", zap.Error(err))
	}
	logger.Info("fix server started", zap.Strings("symbols", manager.Symbols()))

	<-ctx.Done()
	logger.Info("shutting down")
	acceptor.Stop()
}
