package orderbook

import (
	"go.uber.org/zap"
)

type Option func(*OrderBook)

func WithLogger(logger *zap.Logger) Option {
	return func(ob *OrderBook) {
		if logger != nil {
			ob.logger = logger
		}
	}
}

// WithValidation makes the book verify its invariants after every
// mutating command and panic on the first violation.
func WithValidation(enabled bool) Option {
	return func(ob *OrderBook) {
		ob.validate = enabled
	}
}

// OrderBook matches orders of a single instrument. It has no internal
// locking: callers must serialise every call on the same instance.
type OrderBook struct {
	spec *SymbolSpec

	asks *orderBookSide
	bids *orderBookSide

	orders map[int64]*Order

	sink     EventSink
	logger   *zap.Logger
	validate bool
}

func NewOrderBook(spec *SymbolSpec, sink EventSink, opts ...Option) *OrderBook {
	if sink == nil {
		sink = NopSink
	}
	ob := &OrderBook{
		spec:   spec,
		asks:   newOrderBookSide(ActionAsk),
		bids:   newOrderBookSide(ActionBid),
		orders: make(map[int64]*Order),
		sink:   sink,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

func (ob *OrderBook) Spec() *SymbolSpec {
	return ob.spec
}

func (ob *OrderBook) side(action OrderAction) *orderBookSide {
	if action == ActionBid {
		return ob.bids
	}
	return ob.asks
}

// NewOrder places an order. Residual handling depends on the order type:
// GTC rests, IOC rejects, FOK_BUDGET either fills completely or rejects
// the whole size without touching the book.
func (ob *OrderBook) NewOrder(cmd *PlaceCommand) ResultCode {
	if cmd.Size <= 0 {
		ob.logger.Debug("reject order with invalid size",
			zap.Int64("order_id", cmd.OrderID), zap.Int64("size", cmd.Size))
		return ResultInvalidOrderSize
	}

	switch cmd.OrderType {
	case OrderTypeGTC, OrderTypeIOC, OrderTypeFOKBudget:
	default:
		ob.logger.Debug("unsupported order type",
			zap.Int64("order_id", cmd.OrderID), zap.Stringer("order_type", cmd.OrderType))
		return ResultUnsupportedOrderType
	}

	hold := cmd.ReserveBidPrice

	if _, ok := ob.orders[cmd.OrderID]; ok {
		ob.logger.Debug("duplicate order id", zap.Int64("order_id", cmd.OrderID))
		ob.sink.Reduce(cmd.Price, hold, cmd.Size)
		ob.sink.TakerHeader(cmd.OrderID, cmd.UID, true, cmd.Action)
		return ResultSuccess
	}

	switch cmd.OrderType {
	case OrderTypeGTC:
		ob.placeGTC(cmd, hold)
	case OrderTypeIOC:
		ob.placeIOC(cmd, hold)
	case OrderTypeFOKBudget:
		ob.placeFOKBudget(cmd, hold)
	}

	ob.afterMutation()
	return ResultSuccess
}

func (ob *OrderBook) placeGTC(cmd *PlaceCommand, hold int64) {
	filled := ob.match(cmd.Action, cmd.Price, cmd.Size, hold, true)
	if filled == cmd.Size {
		ob.sink.TakerHeader(cmd.OrderID, cmd.UID, true, cmd.Action)
		return
	}

	o := &Order{
		OrderID:         cmd.OrderID,
		UID:             cmd.UID,
		Price:           cmd.Price,
		Size:            cmd.Size,
		Filled:          filled,
		ReserveBidPrice: cmd.ReserveBidPrice,
		Action:          cmd.Action,
		Timestamp:       cmd.Timestamp,
	}
	ob.side(o.Action).insert(o)
	ob.orders[o.OrderID] = o

	ob.sink.TakerHeader(cmd.OrderID, cmd.UID, false, cmd.Action)
}

func (ob *OrderBook) placeIOC(cmd *PlaceCommand, hold int64) {
	filled := ob.match(cmd.Action, cmd.Price, cmd.Size, hold, true)
	if rejected := cmd.Size - filled; rejected > 0 {
		ob.sink.Reduce(cmd.Price, hold, rejected)
	}
	ob.sink.TakerHeader(cmd.OrderID, cmd.UID, true, cmd.Action)
}

func (ob *OrderBook) placeFOKBudget(cmd *PlaceCommand, hold int64) {
	if !ob.budgetSatisfied(cmd) {
		ob.logger.Debug("fok budget not satisfied",
			zap.Int64("order_id", cmd.OrderID), zap.Int64("budget", cmd.Price), zap.Int64("size", cmd.Size))
		ob.sink.Reduce(cmd.Price, hold, cmd.Size)
		ob.sink.TakerHeader(cmd.OrderID, cmd.UID, true, cmd.Action)
		return
	}
	ob.match(cmd.Action, 0, cmd.Size, hold, false)
	ob.sink.TakerHeader(cmd.OrderID, cmd.UID, true, cmd.Action)
}

// lookup returns the resting order only when it belongs to uid.
func (ob *OrderBook) lookup(orderID, uid int64) (*Order, bool) {
	o, ok := ob.orders[orderID]
	if !ok || o.UID != uid {
		ob.logger.Debug("unknown order id", zap.Int64("order_id", orderID), zap.Int64("uid", uid))
		return nil, false
	}
	return o, true
}

func (ob *OrderBook) removeOrder(o *Order) {
	ob.side(o.Action).remove(o)
	delete(ob.orders, o.OrderID)
}

func (ob *OrderBook) CancelOrder(cmd *CancelCommand) ResultCode {
	o, ok := ob.lookup(cmd.OrderID, cmd.UID)
	if !ok {
		return ResultUnknownOrderID
	}

	ob.removeOrder(o)

	ob.sink.Reduce(o.Price, o.ReserveBidPrice, o.Remaining())
	ob.sink.TakerHeader(o.OrderID, o.UID, true, o.Action)

	ob.afterMutation()
	return ResultSuccess
}

// ReduceOrder lowers the remaining size of a resting order in place, keeping
// its time priority. Reducing by at least the remaining size removes it.
func (ob *OrderBook) ReduceOrder(cmd *ReduceCommand) ResultCode {
	o, ok := ob.lookup(cmd.OrderID, cmd.UID)
	if !ok {
		return ResultUnknownOrderID
	}
	if cmd.Size <= 0 {
		return ResultSuccess
	}

	reduceBy := min(cmd.Size, o.Remaining())
	completed := reduceBy == o.Remaining()
	if completed {
		ob.removeOrder(o)
	} else {
		ob.side(o.Action).levelAt(o.Price).reduce(o, reduceBy)
	}

	ob.sink.Reduce(o.Price, o.ReserveBidPrice, reduceBy)
	ob.sink.TakerHeader(o.OrderID, o.UID, completed, o.Action)

	ob.afterMutation()
	return ResultSuccess
}

// MoveOrder reprices a resting order. The order loses its time priority and
// trades immediately if the new price crosses the book.
func (ob *OrderBook) MoveOrder(cmd *MoveCommand) ResultCode {
	o, ok := ob.lookup(cmd.OrderID, cmd.UID)
	if !ok {
		return ResultUnknownOrderID
	}

	// in exchange mode bid funds are held at the reserve price
	if ob.spec.exchangeMode() && o.Action == ActionBid && cmd.NewPrice > o.ReserveBidPrice {
		ob.logger.Debug("move price over risk limit",
			zap.Int64("order_id", o.OrderID), zap.Int64("new_price", cmd.NewPrice), zap.Int64("reserve_bid_price", o.ReserveBidPrice))
		return ResultMoveFailedPriceOverRiskLimit
	}

	ob.removeOrder(o)
	o.Price = cmd.NewPrice

	o.Filled += ob.match(o.Action, o.Price, o.Remaining(), o.ReserveBidPrice, true)

	completed := o.Remaining() == 0
	if !completed {
		ob.side(o.Action).insert(o)
		ob.orders[o.OrderID] = o
	}
	ob.sink.TakerHeader(o.OrderID, o.UID, completed, o.Action)

	ob.afterMutation()
	return ResultSuccess
}

func (ob *OrderBook) GetOrderByID(orderID int64) (*Order, bool) {
	o, ok := ob.orders[orderID]
	return o, ok
}

func (ob *OrderBook) BestAsk() (int64, bool) {
	return ob.asks.bestPrice()
}

func (ob *OrderBook) BestBid() (int64, bool) {
	return ob.bids.bestPrice()
}

func (ob *OrderBook) OrdersNum(action OrderAction) int {
	return ob.side(action).orders()
}

func (ob *OrderBook) TotalOrdersVolume(action OrderAction) int64 {
	return ob.side(action).volume()
}

// AskOrders lists resting asks in matching order.
func (ob *OrderBook) AskOrders() []*Order {
	return ob.sideOrders(ob.asks)
}

// BidOrders lists resting bids in matching order.
func (ob *OrderBook) BidOrders() []*Order {
	return ob.sideOrders(ob.bids)
}

func (ob *OrderBook) sideOrders(s *orderBookSide) []*Order {
	out := make([]*Order, 0, s.orders())
	s.walk(func(lvl *priceLevel) bool {
		lvl.each(func(o *Order) bool {
			out = append(out, o)
			return true
		})
		return true
	})
	return out
}

// FindUserOrders returns the orders of uid, asks first, each side in matching order.
func (ob *OrderBook) FindUserOrders(uid int64) []*Order {
	var out []*Order
	for _, o := range ob.AskOrders() {
		if o.UID == uid {
			out = append(out, o)
		}
	}
	for _, o := range ob.BidOrders() {
		if o.UID == uid {
			out = append(out, o)
		}
	}
	return out
}

// Reset drops every resting order.
func (ob *OrderBook) Reset() {
	ob.asks.clear()
	ob.bids.clear()
	clear(ob.orders)
}

func (ob *OrderBook) afterMutation() {
	if ob.validate {
		ob.VerifyInvariants()
	}
}
