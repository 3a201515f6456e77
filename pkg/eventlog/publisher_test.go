package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/matching-core/pkg/engine"
	kafkawrapper "github.com/joripage/matching-core/pkg/kafka_wrapper"
	"github.com/joripage/matching-core/pkg/model"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/response"
)

type captureProducer struct {
	msgs []kafkawrapper.Message
	err  error
}

func (c *captureProducer) PublishBatch(_ context.Context, msgs []kafkawrapper.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func run(t *testing.T, e *engine.Engine, cmds ...*engine.Command) []*response.CommandResponse {
	t.Helper()
	out := make([]*response.CommandResponse, len(cmds))
	for i, cmd := range cmds {
		resp, err := e.Process(cmd)
		require.NoError(t, err)
		out[i] = resp
	}
	return out
}

func TestPublish(t *testing.T) {
	e := engine.New(&orderbook.SymbolSpec{Symbol: "XBT_USD"}, nil)
	cmds := []*engine.Command{
		{Type: engine.CommandPlace, Symbol: "XBT_USD", OrderID: 1, UID: 1, Price: 100, Size: 2, Action: "ASK"},
		{Type: engine.CommandPlace, Symbol: "XBT_USD", OrderID: 2, UID: 2, Price: 100, ReserveBidPrice: 100, Size: 5, Action: "BID"},
	}
	resps := run(t, e, cmds...)

	prod := &captureProducer{}
	p := newPublisher(prod, "execution-events", nil)
	p.now = func() time.Time { return time.Unix(100, 0).UTC() }

	require.NoError(t, p.Publish(context.Background(), cmds, resps))

	// resting placement has no events
	require.Len(t, prod.msgs, 1)
	msg := prod.msgs[0]
	assert.Equal(t, "execution-events", msg.Topic)
	assert.Equal(t, kafkawrapper.HashKey("XBT_USD"), msg.Key)
	assert.Equal(t, "XBT_USD", msg.Headers[HeaderSymbol])

	events, err := Decode(msg.Value)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.ExecutionEventTrade, events[0].EventType)
	assert.Equal(t, int64(2), events[0].Volume)
	assert.True(t, events[0].EventTime.Equal(time.Unix(100, 0)))
}

func TestPublishNothing(t *testing.T) {
	prod := &captureProducer{err: errors.New("should not be called")}
	p := newPublisher(prod, "t", nil)
	assert.NoError(t, p.Publish(context.Background(), nil, nil))
	assert.Empty(t, prod.msgs)
}

func TestPublishError(t *testing.T) {
	e := engine.New(&orderbook.SymbolSpec{Symbol: "XBT_USD"}, nil)
	cmds := []*engine.Command{
		{Type: engine.CommandPlace, Symbol: "XBT_USD", OrderType: "IOC", OrderID: 1, UID: 1, Price: 100, Size: 2, Action: "ASK"},
	}
	resps := run(t, e, cmds...)

	boom := errors.New("broker down")
	p := newPublisher(&captureProducer{err: boom}, "t", nil)
	err := p.Publish(context.Background(), cmds, resps)
	assert.True(t, errors.Is(err, boom))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)
}
