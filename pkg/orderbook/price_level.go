package orderbook

import "github.com/gammazero/deque"

// levelEntry is an order's slot in a level queue. Removing an order clears
// its slot in place; cleared slots are dropped once they reach the front or
// outnumber the live ones.
type levelEntry struct {
	order *Order
	level *priceLevel
}

// priceLevel keeps orders at one price in arrival order. totalVolume and
// numOrders always match the live queue contents.
type priceLevel struct {
	price       int64
	orders      deque.Deque[*levelEntry]
	totalVolume int64
	numOrders   int
	cleared     int
}

func newPriceLevel(price int64) *priceLevel {
	return &priceLevel{price: price}
}

func (pl *priceLevel) add(o *Order) {
	e := &levelEntry{order: o, level: pl}
	o.entry = e
	pl.orders.PushBack(e)
	pl.totalVolume += o.Remaining()
	pl.numOrders++
}

func (pl *priceLevel) front() *Order {
	if pl.orders.Len() == 0 {
		return nil
	}
	return pl.orders.Front().order
}

func (pl *priceLevel) popFront() *Order {
	o := pl.orders.PopFront().order
	o.entry = nil
	pl.totalVolume -= o.Remaining()
	pl.numOrders--
	pl.trim()
	return o
}

// remove detaches o from the queue, wherever it is.
func (pl *priceLevel) remove(o *Order) bool {
	e := o.entry
	if e == nil || e.level != pl {
		return false
	}
	e.order = nil
	o.entry = nil
	pl.totalVolume -= o.Remaining()
	pl.numOrders--
	pl.cleared++
	pl.trim()
	if pl.cleared > pl.numOrders {
		pl.compact()
	}
	return true
}

// trim drops cleared slots from the head so front is always live.
func (pl *priceLevel) trim() {
	for pl.orders.Len() > 0 && pl.orders.Front().order == nil {
		pl.orders.PopFront()
		pl.cleared--
	}
}

func (pl *priceLevel) compact() {
	for n := pl.orders.Len(); n > 0; n-- {
		if e := pl.orders.PopFront(); e.order != nil {
			pl.orders.PushBack(e)
		}
	}
	pl.cleared = 0
}

// fill records a trade of volume against the front order.
func (pl *priceLevel) fill(o *Order, volume int64) {
	o.Filled += volume
	pl.totalVolume -= volume
}

// reduce lowers the size of a resting order without touching its position.
func (pl *priceLevel) reduce(o *Order, volume int64) {
	o.Size -= volume
	pl.totalVolume -= volume
}

func (pl *priceLevel) empty() bool {
	return pl.orders.Len() == 0
}

func (pl *priceLevel) each(fn func(o *Order) bool) {
	for i := 0; i < pl.orders.Len(); i++ {
		o := pl.orders.At(i).order
		if o == nil {
			continue
		}
		if !fn(o) {
			return
		}
	}
}
