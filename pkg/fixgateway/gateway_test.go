package fixgateway

import (
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/orderbook"
)

var (
	sessionA = quickfix.SessionID{BeginString: quickfix.BeginStringFIX44, SenderCompID: "EXCH", TargetCompID: "CLIENT_A"}
	sessionB = quickfix.SessionID{BeginString: quickfix.BeginStringFIX42, SenderCompID: "EXCH", TargetCompID: "CLIENT_B"}
)

type captured struct {
	sessionID quickfix.SessionID
	report    *ExecReport
	reject    *CancelReject
}

type captureReporter struct {
	out []captured
}

func (c *captureReporter) ExecutionReport(sessionID quickfix.SessionID, r *ExecReport) {
	c.out = append(c.out, captured{sessionID: sessionID, report: r})
}

func (c *captureReporter) CancelReject(sessionID quickfix.SessionID, r *CancelReject) {
	c.out = append(c.out, captured{sessionID: sessionID, reject: r})
}

func (c *captureReporter) take() []captured {
	out := c.out
	c.out = nil
	return out
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestGateway(t *testing.T) (*Gateway, *captureReporter, *engine.Engine) {
	t.Helper()
	m := engine.NewManager(&engine.ManagerConfig{ValidateState: true}, nil)
	e, err := m.Register(&orderbook.SymbolSpec{
		SymbolID:    1,
		Symbol:      "EUR_USD",
		Type:        orderbook.SymbolTypeCurrencyExchangePair,
		BaseScaleK:  1,
		QuoteScaleK: 100,
	})
	require.NoError(t, err)

	rep := &captureReporter{}
	g := NewGateway(m, rep, nil)
	g.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return g, rep, e
}

func limit(session quickfix.SessionID, clOrdID, account string, side enum.Side, tif enum.TimeInForce, px, qty string) *NewOrderSingle {
	return &NewOrderSingle{
		SessionID:   session,
		Account:     account,
		ClOrdID:     clOrdID,
		Symbol:      "EUR_USD",
		OrdType:     enum.OrdType_LIMIT,
		Price:       d(px),
		TimeInForce: tif,
		Side:        side,
		OrderQty:    d(qty),
	}
}

func TestGatewayRestAndPartialFill(t *testing.T) {
	g, rep, e := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "10.50", "10"))
	out := rep.take()
	require.Len(t, out, 1)
	assert.Equal(t, sessionA, out[0].sessionID)
	assert.Equal(t, enum.ExecType_NEW, out[0].report.ExecType)
	assert.True(t, out[0].report.LeavesQty.Equal(d("10")))

	best, ok := e.Book().BestAsk()
	require.True(t, ok)
	assert.Equal(t, int64(1050), best)

	g.OnNewOrderSingle(limit(sessionB, "b1", "bob", enum.Side_BUY, enum.TimeInForce_IMMEDIATE_OR_CANCEL, "10.60", "4"))
	out = rep.take()
	require.Len(t, out, 3)

	assert.Equal(t, enum.ExecType_NEW, out[0].report.ExecType)

	taker := out[1]
	assert.Equal(t, sessionB, taker.sessionID)
	assert.Equal(t, enum.ExecType_TRADE, taker.report.ExecType)
	assert.Equal(t, enum.OrdStatus_FILLED, taker.report.OrdStatus)
	assert.True(t, taker.report.LastQty.Equal(d("4")))
	assert.True(t, taker.report.LastPx.Equal(d("10.5")))
	assert.True(t, taker.report.AvgPx.Equal(d("10.5")))

	maker := out[2]
	assert.Equal(t, sessionA, maker.sessionID)
	assert.Equal(t, "s1", maker.report.ClOrdID)
	assert.Equal(t, enum.OrdStatus_PARTIALLY_FILLED, maker.report.OrdStatus)
	assert.True(t, maker.report.LeavesQty.Equal(d("6")))
	assert.True(t, maker.report.CumQty.Equal(d("4")))

	assert.Equal(t, 1, g.OpenOrders())
}

func TestGatewayIOCRemainderCanceled(t *testing.T) {
	g, rep, _ := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_GOOD_TILL_CANCEL, "10.50", "10"))
	rep.take()

	g.OnNewOrderSingle(limit(sessionB, "b1", "bob", enum.Side_BUY, enum.TimeInForce_IMMEDIATE_OR_CANCEL, "10.50", "15"))
	out := rep.take()
	require.Len(t, out, 4)

	assert.Equal(t, enum.ExecType_NEW, out[0].report.ExecType)
	assert.Equal(t, enum.OrdStatus_PARTIALLY_FILLED, out[1].report.OrdStatus)
	assert.Equal(t, enum.OrdStatus_FILLED, out[2].report.OrdStatus)
	assert.Equal(t, sessionA, out[2].sessionID)

	canceled := out[3].report
	assert.Equal(t, enum.ExecType_CANCELED, canceled.ExecType)
	assert.True(t, canceled.LeavesQty.IsZero())
	assert.True(t, canceled.CumQty.Equal(d("10")))

	assert.Equal(t, 0, g.OpenOrders())
}

func TestGatewayFOKKilled(t *testing.T) {
	g, rep, e := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "10.50", "3"))
	rep.take()

	g.OnNewOrderSingle(limit(sessionB, "b1", "bob", enum.Side_BUY, enum.TimeInForce_FILL_OR_KILL, "10.50", "5"))
	out := rep.take()
	require.Len(t, out, 2)
	assert.Equal(t, enum.ExecType_NEW, out[0].report.ExecType)
	assert.Equal(t, enum.ExecType_CANCELED, out[1].report.ExecType)
	assert.True(t, out[1].report.CumQty.IsZero())

	o, ok := e.Book().GetOrderByID(1)
	require.True(t, ok)
	assert.Equal(t, int64(3), o.Remaining())
}

func TestGatewayRejects(t *testing.T) {
	g, rep, _ := newTestGateway(t)

	unknown := limit(sessionA, "x1", "alice", enum.Side_BUY, enum.TimeInForce_DAY, "1", "1")
	unknown.Symbol = "NOPE"
	g.OnNewOrderSingle(unknown)

	g.OnNewOrderSingle(limit(sessionA, "x2", "alice", enum.Side_BUY, enum.TimeInForce_DAY, "10.505", "1"))

	g.OnNewOrderSingle(limit(sessionA, "x3", "alice", enum.Side_BUY, enum.TimeInForce_DAY, "10", "1"))
	g.OnNewOrderSingle(limit(sessionA, "x3", "alice", enum.Side_BUY, enum.TimeInForce_DAY, "10", "1"))

	out := rep.take()
	require.Len(t, out, 4)
	assert.Equal(t, enum.OrdRejReason_UNKNOWN_SYMBOL, out[0].report.OrdRejReason)
	assert.Equal(t, enum.ExecType_REJECTED, out[1].report.ExecType)
	assert.Contains(t, out[1].report.Text, "scale")
	assert.Equal(t, enum.ExecType_NEW, out[2].report.ExecType)
	assert.Equal(t, enum.OrdRejReason_DUPLICATE_ORDER, out[3].report.OrdRejReason)

	// the same ClOrdID on another session is a different order
	g.OnNewOrderSingle(limit(sessionB, "x3", "bob", enum.Side_BUY, enum.TimeInForce_DAY, "10", "1"))
	out = rep.take()
	require.Len(t, out, 1)
	assert.Equal(t, enum.ExecType_NEW, out[0].report.ExecType)
}

func TestGatewayCancel(t *testing.T) {
	g, rep, e := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "10.50", "10"))
	rep.take()

	g.OnOrderCancelRequest(&OrderCancelRequest{SessionID: sessionA, OrigClOrdID: "s1", ClOrdID: "s1-c", Symbol: "EUR_USD"})
	out := rep.take()
	require.Len(t, out, 1)
	r := out[0].report
	assert.Equal(t, enum.ExecType_CANCELED, r.ExecType)
	assert.Equal(t, "s1-c", r.ClOrdID)
	assert.Equal(t, "s1", r.OrigClOrdID)
	assert.True(t, r.LeavesQty.IsZero())

	_, ok := e.Book().BestAsk()
	assert.False(t, ok)
	assert.Equal(t, 0, g.OpenOrders())

	g.OnOrderCancelRequest(&OrderCancelRequest{SessionID: sessionA, OrigClOrdID: "s1", ClOrdID: "s1-c2", Symbol: "EUR_USD"})
	out = rep.take()
	require.Len(t, out, 1)
	require.NotNil(t, out[0].reject)
	assert.Equal(t, enum.CxlRejReason_UNKNOWN_ORDER, out[0].reject.CxlRejReason)
	assert.Equal(t, enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST, out[0].reject.CxlRejResponseTo)
	assert.Equal(t, "NONE", out[0].reject.OrderID)
}

func TestGatewayReplaceReduceAndMove(t *testing.T) {
	g, rep, e := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "10.50", "10"))
	rep.take()

	g.OnOrderCancelReplaceRequest(&OrderCancelReplaceRequest{
		SessionID:   sessionA,
		OrigClOrdID: "s1",
		ClOrdID:     "s2",
		Symbol:      "EUR_USD",
		Side:        enum.Side_SELL,
		OrdType:     enum.OrdType_LIMIT,
		Price:       d("10.40"),
		OrderQty:    d("6"),
	})
	out := rep.take()
	require.Len(t, out, 1)
	r := out[0].report
	assert.Equal(t, enum.ExecType_REPLACED, r.ExecType)
	assert.Equal(t, "s2", r.ClOrdID)
	assert.Equal(t, "s1", r.OrigClOrdID)
	assert.True(t, r.LeavesQty.Equal(d("6")))

	o, ok := e.Book().GetOrderByID(1)
	require.True(t, ok)
	assert.Equal(t, int64(1040), o.Price)
	assert.Equal(t, int64(6), o.Remaining())

	_, found := g.lookup(sessionA, "s1")
	assert.False(t, found)
	_, found = g.lookup(sessionA, "s2")
	assert.True(t, found)
}

func TestGatewayReplaceCrosses(t *testing.T) {
	g, rep, _ := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionB, "b1", "bob", enum.Side_BUY, enum.TimeInForce_DAY, "10.00", "5"))
	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "10.50", "5"))
	rep.take()

	g.OnOrderCancelReplaceRequest(&OrderCancelReplaceRequest{
		SessionID:   sessionA,
		OrigClOrdID: "s1",
		ClOrdID:     "s2",
		Symbol:      "EUR_USD",
		Price:       d("9.90"),
	})
	out := rep.take()
	require.Len(t, out, 3)
	assert.Equal(t, enum.ExecType_REPLACED, out[0].report.ExecType)

	assert.Equal(t, "s2", out[1].report.ClOrdID)
	assert.Equal(t, enum.OrdStatus_FILLED, out[1].report.OrdStatus)
	assert.True(t, out[1].report.LastPx.Equal(d("10")))

	assert.Equal(t, sessionB, out[2].sessionID)
	assert.Equal(t, enum.OrdStatus_FILLED, out[2].report.OrdStatus)

	assert.Equal(t, 0, g.OpenOrders())
}

func TestGatewayReplaceRejected(t *testing.T) {
	g, rep, _ := newTestGateway(t)

	g.OnNewOrderSingle(limit(sessionA, "b1", "alice", enum.Side_BUY, enum.TimeInForce_DAY, "10.00", "5"))
	rep.take()

	tests := []struct {
		name  string
		price string
		qty   string
		text  string
	}{
		{name: "quantity increase", qty: "6", text: ErrQuantityIncrease.Error()},
		{name: "bid over reserve", price: "10.10", text: orderbook.ResultMoveFailedPriceOverRiskLimit.String()},
		{name: "off scale", price: "9.999", text: "scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &OrderCancelReplaceRequest{SessionID: sessionA, OrigClOrdID: "b1", ClOrdID: "b2", Symbol: "EUR_USD"}
			if tt.price != "" {
				req.Price = d(tt.price)
			}
			if tt.qty != "" {
				req.OrderQty = d(tt.qty)
			}
			g.OnOrderCancelReplaceRequest(req)

			out := rep.take()
			require.Len(t, out, 1)
			require.NotNil(t, out[0].reject)
			assert.Equal(t, enum.CxlRejResponseTo_ORDER_CANCEL_REPLACE_REQUEST, out[0].reject.CxlRejResponseTo)
			assert.Equal(t, "1", out[0].reject.OrderID)
			assert.Contains(t, out[0].reject.Text, tt.text)
		})
	}

	_, found := g.lookup(sessionA, "b1")
	assert.True(t, found)
}

func TestGatewayRiskRules(t *testing.T) {
	g, rep, _ := newTestGateway(t)
	g.rules = []RiskRule{NewLimitPriceRule(map[string]PriceBand{"EUR_USD": {Floor: 900, Ceil: 1100}})}

	g.OnNewOrderSingle(limit(sessionA, "s1", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "11.50", "1"))
	out := rep.take()
	require.Len(t, out, 1)
	assert.Equal(t, enum.ExecType_REJECTED, out[0].report.ExecType)
	assert.Contains(t, out[0].report.Text, ErrPriceLimit.Error())

	g.OnNewOrderSingle(limit(sessionA, "s2", "alice", enum.Side_SELL, enum.TimeInForce_DAY, "10.50", "1"))
	rep.take()

	g.OnOrderCancelReplaceRequest(&OrderCancelReplaceRequest{SessionID: sessionA, OrigClOrdID: "s2", ClOrdID: "s3", Symbol: "EUR_USD", Price: d("8.00")})
	out = rep.take()
	require.Len(t, out, 1)
	require.NotNil(t, out[0].reject)
	assert.Contains(t, out[0].reject.Text, ErrPriceLimit.Error())

	// market orders are not price checked
	g.OnNewOrderSingle(&NewOrderSingle{SessionID: sessionB, ClOrdID: "m1", Symbol: "EUR_USD", OrdType: enum.OrdType_MARKET, Side: enum.Side_BUY, OrderQty: d("1")})
	out = rep.take()
	require.Len(t, out, 3)
	assert.Equal(t, enum.OrdStatus_FILLED, out[1].report.OrdStatus)
}
