package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joripage/matching-core/pkg/orderbook"
)

var ErrSnapshotNotFound = errors.New("l2 snapshot not found")

const keyPrefix = "l2:"

// UpdatesChannel is the pub/sub channel notified with the symbol name after
// every snapshot write.
const UpdatesChannel = "l2.updates"

type Snapshot struct {
	Symbol    string                  `json:"symbol"`
	Timestamp int64                   `json:"timestamp"`
	Data      *orderbook.L2MarketData `json:"data"`
}

// L2Store caches the latest depth snapshot of each symbol in redis.
type L2Store struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

func NewL2Store(client redis.UniversalClient, ttl time.Duration) *L2Store {
	return &L2Store{client: client, ttl: ttl, now: time.Now}
}

func Key(symbol string) string {
	return keyPrefix + symbol
}

func (s *L2Store) Save(ctx context.Context, symbol string, data *orderbook.L2MarketData) error {
	payload, err := json.Marshal(&Snapshot{
		Symbol:    symbol,
		Timestamp: s.now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encode l2 %s: %w", symbol, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, Key(symbol), payload, s.ttl)
	pipe.Publish(ctx, UpdatesChannel, symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store l2 %s: %w", symbol, err)
	}
	return nil
}

func (s *L2Store) Load(ctx context.Context, symbol string) (*Snapshot, error) {
	payload, err := s.client.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("load l2 %s: %w", symbol, err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, fmt.Errorf("decode l2 %s: %w", symbol, err)
	}
	return snap, nil
}
