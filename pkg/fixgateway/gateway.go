package fixgateway

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/response"
)

var (
	ErrUnknownOrder       = errors.New("unknown order")
	ErrQuantityIncrease   = errors.New("quantity increase is not supported")
	ErrQuantityBelowFills = errors.New("quantity is not above the filled quantity")
)

// Gateway turns FIX order flow into engine commands and the engine results
// back into execution reports. Messages for one symbol must be handled by a
// single goroutine at a time.
type Gateway struct {
	manager  *engine.Manager
	reporter Reporter
	logger   *zap.Logger
	rules    []RiskRule
	now      func() time.Time

	nextOrderID atomic.Int64
	nextUID     atomic.Int64
	nextExecID  atomic.Int64

	accounts  sync.Map // account -> uid
	byClOrdID sync.Map // session|clOrdID -> *fixOrder
	byOrderID sync.Map // engine order id -> *fixOrder
}

func NewGateway(manager *engine.Manager, reporter Reporter, logger *zap.Logger, rules ...RiskRule) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		manager:  manager,
		reporter: reporter,
		logger:   logger,
		rules:    rules,
		now:      time.Now,
	}
}

func (g *Gateway) checkRisk(symbol string, price int64) error {
	for _, r := range g.rules {
		if err := r.Check(symbol, price); err != nil {
			return err
		}
	}
	return nil
}

func clOrdKey(sessionID quickfix.SessionID, clOrdID string) string {
	return sessionID.String() + "|" + clOrdID
}

func (g *Gateway) uidFor(account string) int64 {
	if v, ok := g.accounts.Load(account); ok {
		return v.(int64)
	}
	v, _ := g.accounts.LoadOrStore(account, g.nextUID.Add(1))
	return v.(int64)
}

func (g *Gateway) execID() string {
	return strconv.FormatInt(g.nextExecID.Add(1), 10)
}

func (g *Gateway) lookup(sessionID quickfix.SessionID, clOrdID string) (*fixOrder, bool) {
	v, ok := g.byClOrdID.Load(clOrdKey(sessionID, clOrdID))
	if !ok {
		return nil, false
	}
	return v.(*fixOrder), true
}

func (g *Gateway) track(o *fixOrder) {
	g.byClOrdID.Store(clOrdKey(o.sessionID, o.clOrdID), o)
	g.byOrderID.Store(o.orderID, o)
}

func (g *Gateway) forget(o *fixOrder) {
	g.byClOrdID.Delete(clOrdKey(o.sessionID, o.clOrdID))
	g.byOrderID.Delete(o.orderID)
}

// OpenOrders returns the number of orders still resting through the gateway.
func (g *Gateway) OpenOrders() int {
	n := 0
	g.byOrderID.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (g *Gateway) spec(symbol string) (*orderbook.SymbolSpec, bool) {
	e, ok := g.manager.Engine(symbol)
	if !ok {
		return nil, false
	}
	return e.Book().Spec(), true
}

func (g *Gateway) OnNewOrderSingle(req *NewOrderSingle) {
	spec, ok := g.spec(req.Symbol)
	if !ok {
		g.rejectOrder(req, enum.OrdRejReason_UNKNOWN_SYMBOL, "unknown symbol "+req.Symbol)
		return
	}
	if _, dup := g.lookup(req.SessionID, req.ClOrdID); dup {
		g.rejectOrder(req, enum.OrdRejReason_DUPLICATE_ORDER, "duplicate ClOrdID "+req.ClOrdID)
		return
	}

	order := &fixOrder{
		sessionID:   req.SessionID,
		orderID:     g.nextOrderID.Add(1),
		uid:         g.uidFor(req.Account),
		clOrdID:     req.ClOrdID,
		account:     req.Account,
		symbol:      req.Symbol,
		side:        req.Side,
		timeInForce: req.TimeInForce,
		price:       req.Price,
		orderQty:    req.OrderQty,
	}
	if req.TransactTime.IsZero() {
		req.TransactTime = g.now()
	}

	cmd, err := buildPlaceCommand(req, spec, order.orderID, order.uid)
	if err != nil {
		g.rejectOrder(req, enum.OrdRejReason_OTHER, err.Error())
		return
	}
	if req.OrdType == enum.OrdType_LIMIT {
		price, _ := toUnits(req.Price, spec.QuoteScaleK)
		if err := g.checkRisk(req.Symbol, price); err != nil {
			g.rejectOrder(req, enum.OrdRejReason_OTHER, err.Error())
			return
		}
	}
	resp, err := g.manager.Process(cmd)
	if err != nil {
		g.logger.Error("process new order", zap.Stringer("cmd", cmd), zap.Error(err))
		g.rejectOrder(req, enum.OrdRejReason_OTHER, err.Error())
		return
	}
	if !resp.Success() {
		g.rejectOrder(req, enum.OrdRejReason_OTHER, resp.ResultCode.String())
		return
	}

	g.track(order)
	g.reporter.ExecutionReport(order.sessionID, g.orderReport(order, enum.ExecType_NEW, order.status()))
	g.applyBlock(order, spec, resp.TradeEventsBlock)
}

func (g *Gateway) OnOrderCancelRequest(req *OrderCancelRequest) {
	order, ok := g.lookup(req.SessionID, req.OrigClOrdID)
	if !ok {
		g.rejectCancel(req.SessionID, nil, req.ClOrdID, req.OrigClOrdID,
			enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST, enum.CxlRejReason_UNKNOWN_ORDER, ErrUnknownOrder.Error())
		return
	}

	cmd := &engine.Command{
		Type:    engine.CommandCancel,
		Symbol:  order.symbol,
		OrderID: order.orderID,
		UID:     order.uid,
	}
	resp, err := g.manager.Process(cmd)
	if err == nil && !resp.Success() {
		err = errors.New(resp.ResultCode.String())
	}
	if err != nil {
		g.rejectCancel(req.SessionID, order, req.ClOrdID, req.OrigClOrdID,
			enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST, enum.CxlRejReason_OTHER, err.Error())
		return
	}

	g.forget(order)
	orig := order.clOrdID
	order.clOrdID = req.ClOrdID
	r := g.orderReport(order, enum.ExecType_CANCELED, enum.OrdStatus_CANCELED)
	r.OrigClOrdID = orig
	r.LeavesQty = decimal.Zero
	g.reporter.ExecutionReport(order.sessionID, r)
}

// OnOrderCancelReplaceRequest applies a quantity decrease as a reduce and a
// price change as a move, in that order. A quantity increase is rejected.
func (g *Gateway) OnOrderCancelReplaceRequest(req *OrderCancelReplaceRequest) {
	reject := func(order *fixOrder, reason enum.CxlRejReason, text string) {
		g.rejectCancel(req.SessionID, order, req.ClOrdID, req.OrigClOrdID,
			enum.CxlRejResponseTo_ORDER_CANCEL_REPLACE_REQUEST, reason, text)
	}

	order, ok := g.lookup(req.SessionID, req.OrigClOrdID)
	if !ok {
		reject(nil, enum.CxlRejReason_UNKNOWN_ORDER, ErrUnknownOrder.Error())
		return
	}
	spec, _ := g.spec(order.symbol)

	reduceBy, newPrice, err := replaceDelta(order, req, spec)
	if err == nil && newPrice > 0 {
		err = g.checkRisk(order.symbol, newPrice)
	}
	if err != nil {
		reject(order, enum.CxlRejReason_OTHER, err.Error())
		return
	}

	if reduceBy > 0 {
		resp, err := g.manager.Process(&engine.Command{
			Type:    engine.CommandReduce,
			Symbol:  order.symbol,
			OrderID: order.orderID,
			UID:     order.uid,
			Size:    reduceBy,
		})
		if err == nil && !resp.Success() {
			err = errors.New(resp.ResultCode.String())
		}
		if err != nil {
			reject(order, enum.CxlRejReason_OTHER, err.Error())
			return
		}
		order.orderQty = req.OrderQty
	}

	var moved *response.CommandResponse
	if newPrice > 0 {
		moved, err = g.manager.Process(&engine.Command{
			Type:    engine.CommandMove,
			Symbol:  order.symbol,
			OrderID: order.orderID,
			UID:     order.uid,
			Price:   newPrice,
		})
		if err == nil && !moved.Success() {
			err = errors.New(moved.ResultCode.String())
		}
		if err != nil {
			text := err.Error()
			if reduceBy > 0 {
				text = fmt.Sprintf("%s; quantity reduced to %s", text, order.orderQty)
			}
			reject(order, enum.CxlRejReason_OTHER, text)
			return
		}
		order.price = req.Price
	}

	g.forget(order)
	orig := order.clOrdID
	order.clOrdID = req.ClOrdID
	g.track(order)

	r := g.orderReport(order, enum.ExecType_REPLACED, order.status())
	r.OrigClOrdID = orig
	g.reporter.ExecutionReport(order.sessionID, r)

	if moved != nil {
		g.applyBlock(order, spec, moved.TradeEventsBlock)
	}
}

// replaceDelta works out how much to reduce the order by and the new book
// price. A zero price means the price is unchanged.
func replaceDelta(order *fixOrder, req *OrderCancelReplaceRequest, spec *orderbook.SymbolSpec) (int64, int64, error) {
	if req.OrdType != "" && req.OrdType != enum.OrdType_LIMIT {
		return 0, 0, fmt.Errorf("%w: %q", errUnsupportedOrdType, req.OrdType)
	}

	var reduceBy int64
	if !req.OrderQty.IsZero() && !req.OrderQty.Equal(order.orderQty) {
		if req.OrderQty.GreaterThan(order.orderQty) {
			return 0, 0, ErrQuantityIncrease
		}
		if !req.OrderQty.GreaterThan(order.cumQty) {
			return 0, 0, ErrQuantityBelowFills
		}
		cur, err := toUnits(order.orderQty, spec.BaseScaleK)
		if err != nil {
			return 0, 0, err
		}
		next, err := toUnits(req.OrderQty, spec.BaseScaleK)
		if err != nil {
			return 0, 0, fmt.Errorf("order qty: %w", err)
		}
		reduceBy = cur - next
	}

	var newPrice int64
	if !req.Price.IsZero() && !req.Price.Equal(order.price) {
		p, err := toUnits(req.Price, spec.QuoteScaleK)
		if err != nil {
			return 0, 0, fmt.Errorf("price: %w", err)
		}
		newPrice = p
	}
	return reduceBy, newPrice, nil
}

// applyBlock reports the fills of a taker and its makers, then any unfilled
// remainder that the book dropped.
func (g *Gateway) applyBlock(taker *fixOrder, spec *orderbook.SymbolSpec, block *response.TradeEventsBlock) {
	if block == nil {
		return
	}

	for _, tr := range block.Trades {
		qty := fromUnits(tr.Volume, spec.BaseScaleK)
		px := fromUnits(tr.Price, spec.QuoteScaleK)

		g.fill(taker, qty, px)

		if v, ok := g.byOrderID.Load(tr.MakerOrderID); ok {
			maker := v.(*fixOrder)
			g.fill(maker, qty, px)
			if tr.MakerCompleted {
				g.forget(maker)
			}
		}
	}

	if block.ReduceEvent != nil {
		r := g.orderReport(taker, enum.ExecType_CANCELED, enum.OrdStatus_CANCELED)
		r.LeavesQty = decimal.Zero
		r.Text = "unfilled quantity canceled"
		g.reporter.ExecutionReport(taker.sessionID, r)
		g.forget(taker)
		return
	}
	if block.TakerCompleted {
		g.forget(taker)
	}
}

func (g *Gateway) fill(o *fixOrder, qty, px decimal.Decimal) {
	o.cumQty = o.cumQty.Add(qty)
	o.cumNotional = o.cumNotional.Add(qty.Mul(px))

	r := g.orderReport(o, enum.ExecType_TRADE, o.status())
	r.LastQty = qty
	r.LastPx = px
	g.reporter.ExecutionReport(o.sessionID, r)
}

func (g *Gateway) orderReport(o *fixOrder, execType enum.ExecType, status enum.OrdStatus) *ExecReport {
	return &ExecReport{
		OrderID:      strconv.FormatInt(o.orderID, 10),
		ExecID:       g.execID(),
		ClOrdID:      o.clOrdID,
		ExecType:     execType,
		OrdStatus:    status,
		Account:      o.account,
		Symbol:       o.symbol,
		Side:         o.side,
		TimeInForce:  o.timeInForce,
		Price:        o.price,
		OrderQty:     o.orderQty,
		LeavesQty:    o.leavesQty(),
		CumQty:       o.cumQty,
		AvgPx:        o.avgPx(),
		TransactTime: g.now(),
	}
}

func (g *Gateway) rejectOrder(req *NewOrderSingle, reason enum.OrdRejReason, text string) {
	g.logger.Info("order rejected",
		zap.String("cl_ord_id", req.ClOrdID),
		zap.String("symbol", req.Symbol),
		zap.String("reason", text),
	)
	g.reporter.ExecutionReport(req.SessionID, &ExecReport{
		OrderID:      "NONE",
		ExecID:       g.execID(),
		ClOrdID:      req.ClOrdID,
		ExecType:     enum.ExecType_REJECTED,
		OrdStatus:    enum.OrdStatus_REJECTED,
		OrdRejReason: reason,
		Account:      req.Account,
		Symbol:       req.Symbol,
		Side:         req.Side,
		TimeInForce:  req.TimeInForce,
		Price:        req.Price,
		OrderQty:     req.OrderQty,
		LeavesQty:    decimal.Zero,
		CumQty:       decimal.Zero,
		AvgPx:        decimal.Zero,
		Text:         text,
		TransactTime: g.now(),
	})
}

func (g *Gateway) rejectCancel(sessionID quickfix.SessionID, order *fixOrder, clOrdID, origClOrdID string,
	to enum.CxlRejResponseTo, reason enum.CxlRejReason, text string) {
	g.logger.Info("cancel rejected",
		zap.String("cl_ord_id", clOrdID),
		zap.String("orig_cl_ord_id", origClOrdID),
		zap.String("reason", text),
	)
	r := &CancelReject{
		OrderID:          "NONE",
		ClOrdID:          clOrdID,
		OrigClOrdID:      origClOrdID,
		OrdStatus:        enum.OrdStatus_REJECTED,
		CxlRejResponseTo: to,
		CxlRejReason:     reason,
		Text:             text,
	}
	if order != nil {
		r.OrderID = strconv.FormatInt(order.orderID, 10)
		r.OrdStatus = order.status()
	}
	g.reporter.CancelReject(sessionID, r)
}
