package orderbook

import (
	"fmt"
	"slices"
	"strings"
)

// L2MarketData is a price-aggregated view of the book. Index 0 of every
// slice is the best level of its side.
type L2MarketData struct {
	AskPrices  []int64 `json:"ask_prices"`
	AskVolumes []int64 `json:"ask_volumes"`
	AskOrders  []int64 `json:"ask_orders"`
	BidPrices  []int64 `json:"bid_prices"`
	BidVolumes []int64 `json:"bid_volumes"`
	BidOrders  []int64 `json:"bid_orders"`
}

// L2MarketDataSnapshot aggregates up to depth levels per side from the
// current state. It is never cached.
func (ob *OrderBook) L2MarketDataSnapshot(depth int) *L2MarketData {
	askDepth := min(max(depth, 0), ob.asks.numLevels())
	bidDepth := min(max(depth, 0), ob.bids.numLevels())

	data := &L2MarketData{
		AskPrices:  make([]int64, 0, askDepth),
		AskVolumes: make([]int64, 0, askDepth),
		AskOrders:  make([]int64, 0, askDepth),
		BidPrices:  make([]int64, 0, bidDepth),
		BidVolumes: make([]int64, 0, bidDepth),
		BidOrders:  make([]int64, 0, bidDepth),
	}

	ob.asks.walk(func(lvl *priceLevel) bool {
		if len(data.AskPrices) == askDepth {
			return false
		}
		data.AskPrices = append(data.AskPrices, lvl.price)
		data.AskVolumes = append(data.AskVolumes, lvl.totalVolume)
		data.AskOrders = append(data.AskOrders, int64(lvl.numOrders))
		return true
	})
	ob.bids.walk(func(lvl *priceLevel) bool {
		if len(data.BidPrices) == bidDepth {
			return false
		}
		data.BidPrices = append(data.BidPrices, lvl.price)
		data.BidVolumes = append(data.BidVolumes, lvl.totalVolume)
		data.BidOrders = append(data.BidOrders, int64(lvl.numOrders))
		return true
	})

	return data
}

func (d *L2MarketData) AskSize() int {
	return len(d.AskPrices)
}

func (d *L2MarketData) BidSize() int {
	return len(d.BidPrices)
}

func (d *L2MarketData) TotalAskVolume() int64 {
	return sum(d.AskVolumes)
}

func (d *L2MarketData) TotalBidVolume() int64 {
	return sum(d.BidVolumes)
}

// AggregateBuyBudget is the cost of buying size from the ask levels.
func (d *L2MarketData) AggregateBuyBudget(size int64) (int64, error) {
	return aggregate(d.AskPrices, d.AskVolumes, size)
}

// AggregateSellExpectation is the proceeds of selling size into the bid levels.
func (d *L2MarketData) AggregateSellExpectation(size int64) (int64, error) {
	return aggregate(d.BidPrices, d.BidVolumes, size)
}

func aggregate(prices, volumes []int64, size int64) (int64, error) {
	if size <= 0 {
		return 0, errNegativeQuantity
	}
	var total int64
	for i := range prices {
		if volumes[i] < size {
			total += volumes[i] * prices[i]
			size -= volumes[i]
			continue
		}
		return total + size*prices[i], nil
	}
	return 0, fmt.Errorf("collect size %d: %w", size, ErrNotEnoughVolume)
}

func (d *L2MarketData) Equal(other *L2MarketData) bool {
	if d == nil || other == nil {
		return d == other
	}
	return slices.Equal(d.AskPrices, other.AskPrices) &&
		slices.Equal(d.AskVolumes, other.AskVolumes) &&
		slices.Equal(d.AskOrders, other.AskOrders) &&
		slices.Equal(d.BidPrices, other.BidPrices) &&
		slices.Equal(d.BidVolumes, other.BidVolumes) &&
		slices.Equal(d.BidOrders, other.BidOrders)
}

// String renders asks worst to best above the bids, one level per line.
func (d *L2MarketData) String() string {
	var sb strings.Builder
	for i := d.AskSize() - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "ASK %12d %10d (%d)\n", d.AskPrices[i], d.AskVolumes[i], d.AskOrders[i])
	}
	sb.WriteString("----------------------------------\n")
	for i := 0; i < d.BidSize(); i++ {
		fmt.Fprintf(&sb, "BID %12d %10d (%d)\n", d.BidPrices[i], d.BidVolumes[i], d.BidOrders[i])
	}
	return sb.String()
}

func sum(values []int64) int64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return total
}
