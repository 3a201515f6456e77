package orderbook

import "fmt"

// ValidateInternalState walks the whole book and reports the first broken
// invariant.
func (ob *OrderBook) ValidateInternalState() error {
	seen := make(map[int64]OrderAction, len(ob.orders))

	for _, s := range []*orderBookSide{ob.asks, ob.bids} {
		if len(s.prices) != len(s.levels) {
			return fmt.Errorf("%w: %s side has %d prices and %d levels", errInvalidState, s.action, len(s.prices), len(s.levels))
		}
		for i, price := range s.prices {
			if i > 0 && !s.worse(s.prices[i-1], price) {
				return fmt.Errorf("%w: %s prices out of order at %d: %d then %d", errInvalidState, s.action, i, s.prices[i-1], price)
			}
			lvl, ok := s.levels[price]
			if !ok {
				return fmt.Errorf("%w: %s price %d has no level", errInvalidState, s.action, price)
			}
			if err := ob.validateLevel(s.action, lvl, seen); err != nil {
				return err
			}
		}
	}

	if ask, ok := ob.asks.bestPrice(); ok {
		if bid, ok := ob.bids.bestPrice(); ok && bid >= ask {
			return fmt.Errorf("%w: crossed book, bid %d ask %d", errInvalidState, bid, ask)
		}
	}

	if len(seen) != len(ob.orders) {
		return fmt.Errorf("%w: index holds %d orders, book holds %d", errInvalidState, len(ob.orders), len(seen))
	}
	return nil
}

func (ob *OrderBook) validateLevel(action OrderAction, lvl *priceLevel, seen map[int64]OrderAction) error {
	if lvl.empty() {
		return fmt.Errorf("%w: empty %s level %d", errInvalidState, action, lvl.price)
	}

	var volume int64
	var count int
	var err error
	lvl.each(func(o *Order) bool {
		switch {
		case o.Price != lvl.price:
			err = fmt.Errorf("%w: order %d priced %d in level %d", errInvalidState, o.OrderID, o.Price, lvl.price)
		case o.Action != action:
			err = fmt.Errorf("%w: %s order %d on %s side", errInvalidState, o.Action, o.OrderID, action)
		case o.Filled < 0 || o.Filled >= o.Size:
			err = fmt.Errorf("%w: order %d filled %d of %d", errInvalidState, o.OrderID, o.Filled, o.Size)
		case ob.orders[o.OrderID] != o:
			err = fmt.Errorf("%w: order %d not indexed", errInvalidState, o.OrderID)
		}
		if err == nil {
			if other, dup := seen[o.OrderID]; dup {
				err = fmt.Errorf("%w: order %d queued twice (%s and %s)", errInvalidState, o.OrderID, other, action)
			}
		}
		if err != nil {
			return false
		}
		seen[o.OrderID] = action
		volume += o.Remaining()
		count++
		return true
	})
	if err != nil {
		return err
	}

	if volume != lvl.totalVolume {
		return fmt.Errorf("%w: %s level %d caches volume %d, orders sum to %d", errInvalidState, action, lvl.price, lvl.totalVolume, volume)
	}
	if count != lvl.numOrders {
		return fmt.Errorf("%w: %s level %d caches %d orders, queue has %d", errInvalidState, action, lvl.price, lvl.numOrders, count)
	}
	return nil
}

// VerifyInvariants panics when the book is corrupted. A corrupted book
// cannot be repaired at runtime.
func (ob *OrderBook) VerifyInvariants() {
	if err := ob.ValidateInternalState(); err != nil {
		panic(err)
	}
}
