package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/matching-core/pkg/orderbook"
)

func newStore(t *testing.T) (*L2Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewL2Store(client, time.Minute)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s, mr
}

func TestSaveLoad(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	ob := orderbook.NewOrderBook(&orderbook.SymbolSpec{Symbol: "XBT_USD"}, nil)
	ob.NewOrder(&orderbook.PlaceCommand{OrderID: 1, UID: 1, Price: 101, Size: 3, Action: orderbook.ActionAsk})
	ob.NewOrder(&orderbook.PlaceCommand{OrderID: 2, UID: 1, Price: 101, Size: 4, Action: orderbook.ActionAsk})
	ob.NewOrder(&orderbook.PlaceCommand{OrderID: 3, UID: 2, Price: 99, ReserveBidPrice: 99, Size: 5, Action: orderbook.ActionBid})

	want := ob.L2MarketDataSnapshot(10)
	require.NoError(t, s.Save(ctx, "XBT_USD", want))

	assert.True(t, mr.Exists("l2:XBT_USD"))
	assert.Equal(t, time.Minute, mr.TTL("l2:XBT_USD"))

	snap, err := s.Load(ctx, "XBT_USD")
	require.NoError(t, err)
	assert.Equal(t, "XBT_USD", snap.Symbol)
	assert.Equal(t, int64(1700000000000), snap.Timestamp)
	assert.True(t, want.Equal(snap.Data), "got %s", snap.Data)
	assert.Equal(t, []int64{7}, snap.Data.AskVolumes)
	assert.Equal(t, []int64{2}, snap.Data.AskOrders)

	mr.FastForward(2 * time.Minute)
	_, err = s.Load(ctx, "XBT_USD")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestLoadMissing(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Load(context.Background(), "ETH_USD")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestLoadCorrupt(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, mr.Set(Key("XBT_USD"), "{not json"))
	_, err := s.Load(context.Background(), "XBT_USD")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSnapshotNotFound))
}
