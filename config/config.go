package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/joripage/matching-core/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/matching-core/pkg/infra/redis"
	"github.com/joripage/matching-core/pkg/orderbook"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	LogLevel    string                           `yaml:"log_level"`
	Symbols     []*SymbolConfig                  `yaml:"symbols"`
	Engine      *EngineConfig                    `yaml:"engine"`
	OmsDB       *postgres_wrapper.PostgresConfig `yaml:"oms_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Nats        *NatsConfig                      `yaml:"nats"`
	Kafka       *KafkaConfig                     `yaml:"kafka"`
	Fix         *FixConfig                       `yaml:"fix"`
}

type SymbolConfig struct {
	Symbol      string `yaml:"symbol"`
	SymbolID    int32  `yaml:"symbol_id"`
	Type        string `yaml:"type"` // exchange or futures
	BaseScaleK  int64  `yaml:"base_scale_k"`
	QuoteScaleK int64  `yaml:"quote_scale_k"`
}

type EngineConfig struct {
	ValidateState bool `yaml:"validate_state"`
	L2Depth       int  `yaml:"l2_depth"`
	L2TTLSeconds  int  `yaml:"l2_ttl_seconds"`
}

type NatsConfig struct {
	URL            string `yaml:"url"`
	Stream         string `yaml:"stream"`
	CommandSubject string `yaml:"command_subject"`
	Durable        string `yaml:"durable"`
	FetchBatch     int    `yaml:"fetch_batch"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventTopic  string   `yaml:"event_topic"`
	GroupID     string   `yaml:"group_id"`
	WorkerCount int      `yaml:"worker_count"`
	BatchSize   int      `yaml:"batch_size"`
	DLQTopic    string   `yaml:"dlq_topic"`
}

type FixConfig struct {
	ConfigFilepath   string `yaml:"config_filepath"`
	EnableShardQueue bool   `yaml:"enable_shard_queue"`
	ShardCount       int    `yaml:"shard_count"`
	// JSON file of tiered tick sizes per symbol, in book price units
	TickSizeFile string                      `yaml:"tick_size_file"`
	PriceBands   map[string]*PriceBandConfig `yaml:"price_bands"`
}

type PriceBandConfig struct {
	Floor int64 `yaml:"floor"`
	Ceil  int64 `yaml:"ceil"`
}

// Spec converts the symbol entry into the book's instrument description.
func (c *SymbolConfig) Spec() (*orderbook.SymbolSpec, error) {
	spec := &orderbook.SymbolSpec{
		SymbolID:    c.SymbolID,
		Symbol:      c.Symbol,
		BaseScaleK:  c.BaseScaleK,
		QuoteScaleK: c.QuoteScaleK,
	}
	switch strings.ToLower(c.Type) {
	case "", "exchange":
		spec.Type = orderbook.SymbolTypeCurrencyExchangePair
	case "futures":
		spec.Type = orderbook.SymbolTypeFuturesContract
	default:
		return nil, fmt.Errorf("symbol %s: unknown type %q", c.Symbol, c.Type)
	}
	return spec, nil
}

func (c *AppConfig) SymbolSpecs() ([]*orderbook.SymbolSpec, error) {
	specs := make([]*orderbook.SymbolSpec, 0, len(c.Symbols))
	for _, sc := range c.Symbols {
		spec, err := sc.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}
	cfg.setDefaults()

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

func (c *AppConfig) setDefaults() {
	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.L2Depth <= 0 {
		c.Engine.L2Depth = 10
	}
	if c.Nats != nil {
		if c.Nats.Stream == "" {
			c.Nats.Stream = "ORDERS"
		}
		if c.Nats.CommandSubject == "" {
			c.Nats.CommandSubject = "ORDERS.commands"
		}
		if c.Nats.FetchBatch <= 0 {
			c.Nats.FetchBatch = 256
		}
	}
	if c.Kafka != nil && c.Kafka.EventTopic == "" {
		c.Kafka.EventTopic = "execution-events"
	}
}
