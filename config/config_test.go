package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/matching-core/pkg/orderbook"
)

const sample = `
service_name: matcher
log_level: debug
symbols:
  - symbol: XBT_USD
    symbol_id: 1
    type: exchange
  - symbol: XBT_PERP
    symbol_id: 2
    type: futures
engine:
  validate_state: true
oms_db:
  data_source: ${TEST_PG_DSN}
nats:
  url: nats://localhost:4222
  durable: matcher
kafka:
  brokers: [localhost:9092]
  group_id: exec-writer
`

func TestLoad(t *testing.T) {
	t.Setenv("TEST_PG_DSN", "postgres://u:p@localhost/oms")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "matcher", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://u:p@localhost/oms", cfg.OmsDB.DataSource)
	assert.True(t, cfg.Engine.ValidateState)
	assert.Equal(t, 10, cfg.Engine.L2Depth)
	assert.Equal(t, "ORDERS.commands", cfg.Nats.CommandSubject)
	assert.Equal(t, 256, cfg.Nats.FetchBatch)
	assert.Equal(t, "execution-events", cfg.Kafka.EventTopic)
	assert.Nil(t, cfg.Fix)

	specs, err := cfg.SymbolSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, orderbook.SymbolTypeCurrencyExchangePair, specs[0].Type)
	assert.Equal(t, orderbook.SymbolTypeFuturesContract, specs[1].Type)
	assert.Equal(t, int32(2), specs[1].SymbolID)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: worker\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "worker", cfg.ServiceName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSymbolSpecUnknownType(t *testing.T) {
	_, err := (&SymbolConfig{Symbol: "X", Type: "option"}).Spec()
	assert.Error(t, err)
}
