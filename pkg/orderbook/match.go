package orderbook

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/shopspring/decimal"
)

// match walks the side opposite to the taker from its best level, filling up
// to size. When limited is set only levels marketable against limit are
// visited. Exhausted makers leave the book as they complete. It returns the
// filled volume.
func (ob *OrderBook) match(takerAction OrderAction, limit, size, takerHold int64, limited bool) int64 {
	opposite := ob.side(takerAction.Opposite())

	var filled int64
	for filled < size {
		lvl := opposite.best()
		if lvl == nil || (limited && !opposite.marketable(lvl.price, limit)) {
			break
		}

		for filled < size && !lvl.empty() {
			maker := lvl.front()
			volume := min(size-filled, maker.Remaining())
			lvl.fill(maker, volume)
			filled += volume

			completed := maker.Remaining() == 0
			hold := takerHold
			if takerAction == ActionAsk {
				hold = maker.ReserveBidPrice
			}
			ob.sink.Trade(maker.OrderID, maker.UID, completed, maker.Price, volume, hold)

			if completed {
				lvl.popFront()
				delete(ob.orders, maker.OrderID)
			}
		}

		if lvl.empty() {
			opposite.dropLevel(lvl.price)
		}
	}

	return filled
}

// budgetSatisfied runs the dry pass of a FOK_BUDGET order: the full size must
// be available, costing at most the budget for a bid and yielding at least
// the expectation for an ask.
func (ob *OrderBook) budgetSatisfied(cmd *PlaceCommand) bool {
	notional, err := ob.notionalFor(cmd.Action.Opposite(), cmd.Size)
	if err != nil {
		return false
	}
	limit := decimal.NewFromInt(cmd.Price)
	if cmd.Action == ActionBid {
		return notional.LessThanOrEqual(limit)
	}
	return notional.GreaterThanOrEqual(limit)
}

// notionalFor sums price times volume over the best levels of a side until
// size is covered.
func (ob *OrderBook) notionalFor(action OrderAction, size int64) (decimal.Decimal, error) {
	if size <= 0 {
		return decimal.Zero, errNegativeQuantity
	}
	remaining := size
	total := decimal.Zero
	ob.side(action).walk(func(lvl *priceLevel) bool {
		volume := min(remaining, lvl.totalVolume)
		total = total.Add(decimal.NewFromInt(lvl.price).Mul(decimal.NewFromInt(volume)))
		remaining -= volume
		return remaining > 0
	})
	if remaining > 0 {
		return decimal.Zero, ErrNotEnoughVolume
	}
	return total, nil
}

// StateHash is a deterministic digest of the resting orders, in matching order.
func (ob *OrderBook) StateHash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	for _, s := range []*orderBookSide{ob.asks, ob.bids} {
		write(int64(s.action))
		s.walk(func(lvl *priceLevel) bool {
			write(lvl.price)
			lvl.each(func(o *Order) bool {
				write(o.OrderID)
				write(o.UID)
				write(o.Size)
				write(o.Filled)
				write(o.ReserveBidPrice)
				return true
			})
			return true
		})
	}
	return h.Sum64()
}
