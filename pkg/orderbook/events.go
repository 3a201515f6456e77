package orderbook

// EventSink receives the outcome of a command while it is being processed.
// Trades arrive in execution order. Reduce is called at most once per
// command and always after the trades.
type EventSink interface {
	TakerHeader(orderID, uid int64, completed bool, action OrderAction)
	Trade(makerOrderID, makerUID int64, makerCompleted bool, price, volume, bidderHoldPrice int64)
	Reduce(price, bidderHoldPrice, volume int64)
}

type nopSink struct{}

func (nopSink) TakerHeader(int64, int64, bool, OrderAction)   {}
func (nopSink) Trade(int64, int64, bool, int64, int64, int64) {}
func (nopSink) Reduce(int64, int64, int64)                    {}

// NopSink drops every event.
var NopSink EventSink = nopSink{}
