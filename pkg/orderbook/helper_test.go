package orderbook

import (
	"math"
	"testing"
)

const (
	maxPrice = 400000
	uid1     = 412
	uid2     = 413
)

type tradeEvent struct {
	MakerOrderID    int64
	MakerUID        int64
	MakerCompleted  bool
	Price           int64
	Volume          int64
	BidderHoldPrice int64
}

type reduceEvent struct {
	Price           int64
	BidderHoldPrice int64
	Volume          int64
}

type takerHeader struct {
	OrderID   int64
	UID       int64
	Completed bool
	Action    OrderAction
}

type recordingSink struct {
	header  *takerHeader
	trades  []tradeEvent
	reduce  *reduceEvent
	reduces int
}

func (r *recordingSink) reset() {
	r.header = nil
	r.trades = nil
	r.reduce = nil
	r.reduces = 0
}

func (r *recordingSink) TakerHeader(orderID, uid int64, completed bool, action OrderAction) {
	r.header = &takerHeader{OrderID: orderID, UID: uid, Completed: completed, Action: action}
}

func (r *recordingSink) Trade(makerOrderID, makerUID int64, makerCompleted bool, price, volume, bidderHoldPrice int64) {
	r.trades = append(r.trades, tradeEvent{
		MakerOrderID:    makerOrderID,
		MakerUID:        makerUID,
		MakerCompleted:  makerCompleted,
		Price:           price,
		Volume:          volume,
		BidderHoldPrice: bidderHoldPrice,
	})
}

func (r *recordingSink) Reduce(price, bidderHoldPrice, volume int64) {
	r.reduce = &reduceEvent{Price: price, BidderHoldPrice: bidderHoldPrice, Volume: volume}
	r.reduces++
}

func (r *recordingSink) hasEvents() bool {
	return len(r.trades) > 0 || r.reduce != nil
}

func newTestBook(t testing.TB) (*OrderBook, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	spec := &SymbolSpec{SymbolID: 1, Symbol: "XBT_USD", Type: SymbolTypeCurrencyExchangePair}
	return NewOrderBook(spec, sink, WithValidation(true)), sink
}

// place submits an order and checks the response the way every caller relies
// on it: non-GTC orders always report, and reported volume adds up to size.
func place(t testing.TB, ob *OrderBook, sink *recordingSink, orderType OrderType, orderID, uid, price, reserve, size int64, action OrderAction) {
	t.Helper()
	sink.reset()

	code := ob.NewOrder(&PlaceCommand{
		OrderType:       orderType,
		OrderID:         orderID,
		UID:             uid,
		Price:           price,
		ReserveBidPrice: reserve,
		Size:            size,
		Action:          action,
	})
	if code != ResultSuccess {
		t.Fatalf("place %d: expected SUCCESS, got %s", orderID, code)
	}
	if sink.header == nil {
		t.Fatalf("place %d: taker header not written", orderID)
	}
	if sink.header.OrderID != orderID || sink.header.UID != uid || sink.header.Action != action {
		t.Fatalf("place %d: unexpected taker header %+v", orderID, *sink.header)
	}
	if orderType != OrderTypeGTC && !sink.hasEvents() {
		t.Fatalf("place %d: %s order produced no events", orderID, orderType)
	}
	if sink.reduces > 1 {
		t.Fatalf("place %d: %d reduce events", orderID, sink.reduces)
	}

	var total int64
	if sink.reduce != nil {
		if sink.reduce.Price != price {
			t.Errorf("place %d: reject price %d, expected %d", orderID, sink.reduce.Price, price)
		}
		if sink.reduce.BidderHoldPrice != reserve {
			t.Errorf("place %d: reject reserve %d, expected %d", orderID, sink.reduce.BidderHoldPrice, reserve)
		}
		if sink.reduce.Volume <= 0 {
			t.Errorf("place %d: reject volume %d", orderID, sink.reduce.Volume)
		}
		total += sink.reduce.Volume
	}
	for _, tr := range sink.trades {
		if tr.MakerOrderID == 0 || tr.MakerUID == 0 || tr.BidderHoldPrice <= 0 || tr.Price <= 0 || tr.Volume <= 0 {
			t.Errorf("place %d: malformed trade %+v", orderID, tr)
		}
		total += tr.Volume
	}
	if orderType != OrderTypeGTC && total != size {
		t.Errorf("place %d: events cover %d, expected %d", orderID, total, size)
	}
}

func cancel(t testing.TB, ob *OrderBook, sink *recordingSink, orderID, uid int64, want ResultCode) {
	t.Helper()
	sink.reset()
	if code := ob.CancelOrder(&CancelCommand{OrderID: orderID, UID: uid}); code != want {
		t.Fatalf("cancel %d: expected %s, got %s", orderID, want, code)
	}
}

func fixtureL2() *L2MarketData {
	return &L2MarketData{
		AskPrices:  []int64{81599, 81600, 200954, 201000},
		AskVolumes: []int64{75, 100, 10, 60},
		AskOrders:  []int64{2, 1, 1, 2},
		BidPrices:  []int64{81593, 81590, 81200, 10000, 9136},
		BidVolumes: []int64{40, 21, 20, 13, 2},
		BidOrders:  []int64{1, 2, 1, 2, 1},
	}
}

func newFixtureBook(t testing.TB) (*OrderBook, *recordingSink) {
	t.Helper()
	ob, sink := newTestBook(t)

	place(t, ob, sink, OrderTypeGTC, -1, uid2, 81600, 0, 13, ActionAsk)
	cancel(t, ob, sink, -1, uid2, ResultSuccess)

	place(t, ob, sink, OrderTypeGTC, 1, uid1, 81600, 0, 100, ActionAsk)
	place(t, ob, sink, OrderTypeGTC, 2, uid1, 81599, 0, 50, ActionAsk)
	place(t, ob, sink, OrderTypeGTC, 3, uid1, 81599, 0, 25, ActionAsk)
	place(t, ob, sink, OrderTypeGTC, 8, uid1, 201000, 0, 28, ActionAsk)
	place(t, ob, sink, OrderTypeGTC, 9, uid1, 201000, 0, 32, ActionAsk)
	place(t, ob, sink, OrderTypeGTC, 10, uid1, 200954, 0, 10, ActionAsk)

	place(t, ob, sink, OrderTypeGTC, 4, uid1, 81593, 82000, 40, ActionBid)
	place(t, ob, sink, OrderTypeGTC, 5, uid1, 81590, 82000, 20, ActionBid)
	place(t, ob, sink, OrderTypeGTC, 6, uid1, 81590, 82000, 1, ActionBid)
	place(t, ob, sink, OrderTypeGTC, 7, uid1, 81200, 82000, 20, ActionBid)
	place(t, ob, sink, OrderTypeGTC, 11, uid1, 10000, 12000, 12, ActionBid)
	place(t, ob, sink, OrderTypeGTC, 12, uid1, 10000, 12000, 1, ActionBid)
	place(t, ob, sink, OrderTypeGTC, 13, uid1, 9136, 12000, 2, ActionBid)

	assertL2(t, ob, fixtureL2())
	sink.reset()
	return ob, sink
}

// clearBook sweeps both sides with IOC orders and checks nothing is left.
func clearBook(t testing.TB, ob *OrderBook, sink *recordingSink) {
	t.Helper()
	snapshot := ob.L2MarketDataSnapshot(math.MaxInt)
	if v := snapshot.TotalAskVolume(); v > 0 {
		place(t, ob, sink, OrderTypeIOC, 100000000000, -1, maxPrice, maxPrice, v, ActionBid)
	}
	if v := snapshot.TotalBidVolume(); v > 0 {
		place(t, ob, sink, OrderTypeIOC, 100000000001, -2, 1, 0, v, ActionAsk)
	}
	snapshot = ob.L2MarketDataSnapshot(math.MaxInt)
	if snapshot.AskSize() != 0 || snapshot.BidSize() != 0 {
		t.Fatalf("book not empty after sweep:\n%s", snapshot)
	}
	if err := ob.ValidateInternalState(); err != nil {
		t.Fatal(err)
	}
}

func assertL2(t testing.TB, ob *OrderBook, want *L2MarketData) {
	t.Helper()
	got := ob.L2MarketDataSnapshot(25)
	if !got.Equal(want) {
		t.Fatalf("unexpected book state\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func checkTrade(t testing.TB, got tradeEvent, makerID, price, volume int64) {
	t.Helper()
	if got.MakerOrderID != makerID || got.Price != price || got.Volume != volume {
		t.Errorf("expected trade maker=%d price=%d volume=%d, got %+v", makerID, price, volume, got)
	}
}

func checkReduce(t testing.TB, got *reduceEvent, volume, price int64) {
	t.Helper()
	if got == nil {
		t.Fatalf("expected reduce event of %d at %d, got none", volume, price)
	}
	if got.Volume != volume || got.Price != price {
		t.Errorf("expected reduce volume=%d price=%d, got %+v", volume, price, *got)
	}
}

// l2Builder edits a copy of an expected snapshot.
type l2Builder struct {
	d *L2MarketData
}

func expectL2(base *L2MarketData) *l2Builder {
	cp := &L2MarketData{
		AskPrices:  append([]int64(nil), base.AskPrices...),
		AskVolumes: append([]int64(nil), base.AskVolumes...),
		AskOrders:  append([]int64(nil), base.AskOrders...),
		BidPrices:  append([]int64(nil), base.BidPrices...),
		BidVolumes: append([]int64(nil), base.BidVolumes...),
		BidOrders:  append([]int64(nil), base.BidOrders...),
	}
	return &l2Builder{d: cp}
}

func (b *l2Builder) removeAsk(i int) *l2Builder {
	b.d.AskPrices = append(b.d.AskPrices[:i], b.d.AskPrices[i+1:]...)
	b.d.AskVolumes = append(b.d.AskVolumes[:i], b.d.AskVolumes[i+1:]...)
	b.d.AskOrders = append(b.d.AskOrders[:i], b.d.AskOrders[i+1:]...)
	return b
}

func (b *l2Builder) removeBid(i int) *l2Builder {
	b.d.BidPrices = append(b.d.BidPrices[:i], b.d.BidPrices[i+1:]...)
	b.d.BidVolumes = append(b.d.BidVolumes[:i], b.d.BidVolumes[i+1:]...)
	b.d.BidOrders = append(b.d.BidOrders[:i], b.d.BidOrders[i+1:]...)
	return b
}

func (b *l2Builder) removeAllAsks() *l2Builder {
	b.d.AskPrices, b.d.AskVolumes, b.d.AskOrders = []int64{}, []int64{}, []int64{}
	return b
}

func (b *l2Builder) insertAsk(i int, price, volume int64) *l2Builder {
	b.d.AskPrices = insertAt(b.d.AskPrices, i, price)
	b.d.AskVolumes = insertAt(b.d.AskVolumes, i, volume)
	b.d.AskOrders = insertAt(b.d.AskOrders, i, 1)
	return b
}

func (b *l2Builder) insertBid(i int, price, volume int64) *l2Builder {
	b.d.BidPrices = insertAt(b.d.BidPrices, i, price)
	b.d.BidVolumes = insertAt(b.d.BidVolumes, i, volume)
	b.d.BidOrders = insertAt(b.d.BidOrders, i, 1)
	return b
}

func (b *l2Builder) setAskVolume(i int, v int64) *l2Builder {
	b.d.AskVolumes[i] = v
	return b
}

func (b *l2Builder) setBidVolume(i int, v int64) *l2Builder {
	b.d.BidVolumes[i] = v
	return b
}

func (b *l2Builder) addBidOrders(i int, delta int64) *l2Builder {
	b.d.BidOrders[i] += delta
	return b
}

func (b *l2Builder) addAskOrders(i int, delta int64) *l2Builder {
	b.d.AskOrders[i] += delta
	return b
}

func (b *l2Builder) build() *L2MarketData {
	return b.d
}

func insertAt(s []int64, i int, v int64) []int64 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
