package orderbook

import (
	"slices"
	"sort"
)

// orderBookSide holds the levels of one side. prices is kept sorted from
// the worst price to the best one, so the best level sits at the tail and
// consuming it never shifts the slice.
type orderBookSide struct {
	action OrderAction
	prices []int64
	levels map[int64]*priceLevel
}

func newOrderBookSide(action OrderAction) *orderBookSide {
	return &orderBookSide{
		action: action,
		levels: make(map[int64]*priceLevel),
	}
}

// worse reports whether price a is further from the top of the book than b.
func (s *orderBookSide) worse(a, b int64) bool {
	if s.action == ActionAsk {
		return a > b
	}
	return a < b
}

// marketable reports whether a level at price can trade with a taker limited by limit.
func (s *orderBookSide) marketable(price, limit int64) bool {
	if s.action == ActionAsk {
		return price <= limit
	}
	return price >= limit
}

func (s *orderBookSide) search(price int64) int {
	return sort.Search(len(s.prices), func(i int) bool {
		return !s.worse(s.prices[i], price)
	})
}

func (s *orderBookSide) best() *priceLevel {
	if len(s.prices) == 0 {
		return nil
	}
	return s.levels[s.prices[len(s.prices)-1]]
}

func (s *orderBookSide) bestPrice() (int64, bool) {
	if len(s.prices) == 0 {
		return 0, false
	}
	return s.prices[len(s.prices)-1], true
}

func (s *orderBookSide) levelAt(price int64) *priceLevel {
	return s.levels[price]
}

func (s *orderBookSide) insert(o *Order) {
	lvl, ok := s.levels[o.Price]
	if !ok {
		lvl = newPriceLevel(o.Price)
		s.levels[o.Price] = lvl
		s.prices = slices.Insert(s.prices, s.search(o.Price), o.Price)
	}
	lvl.add(o)
}

func (s *orderBookSide) remove(o *Order) bool {
	lvl, ok := s.levels[o.Price]
	if !ok || !lvl.remove(o) {
		return false
	}
	if lvl.empty() {
		s.dropLevel(lvl.price)
	}
	return true
}

func (s *orderBookSide) dropLevel(price int64) {
	delete(s.levels, price)
	n := len(s.prices)
	if n > 0 && s.prices[n-1] == price {
		s.prices = s.prices[:n-1]
		return
	}
	if idx := s.search(price); idx < n && s.prices[idx] == price {
		s.prices = slices.Delete(s.prices, idx, idx+1)
	}
}

// walk visits levels from best to worst until fn returns false.
// fn must not add or drop levels.
func (s *orderBookSide) walk(fn func(lvl *priceLevel) bool) {
	for i := len(s.prices) - 1; i >= 0; i-- {
		if !fn(s.levels[s.prices[i]]) {
			return
		}
	}
}

func (s *orderBookSide) numLevels() int {
	return len(s.prices)
}

func (s *orderBookSide) volume() int64 {
	var total int64
	for _, lvl := range s.levels {
		total += lvl.totalVolume
	}
	return total
}

func (s *orderBookSide) orders() int {
	var total int
	for _, lvl := range s.levels {
		total += lvl.numOrders
	}
	return total
}

func (s *orderBookSide) clear() {
	s.prices = s.prices[:0]
	clear(s.levels)
}
