package loadgen

import (
	"math/rand"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/response"
)

type Config struct {
	Symbol   string
	Users    int
	MidPrice int64
	// orders are priced within MidPrice +/- Spread
	Spread  int64
	MaxSize int64
	// share of commands that cancel, move or reduce a live order
	CancelRatio float64
	MoveRatio   float64
	ReduceRatio float64
	// share of place commands that are IOC
	IOCRatio float64
	Seed     int64
}

func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:      symbol,
		Users:       1000,
		MidPrice:    10_000,
		Spread:      100,
		MaxSize:     100,
		CancelRatio: 0.15,
		MoveRatio:   0.10,
		ReduceRatio: 0.05,
		IOCRatio:    0.10,
		Seed:        1,
	}
}

type liveOrder struct {
	uid    int64
	action orderbook.OrderAction
	price  int64
}

// Generator produces a random but well formed stream of commands for one
// symbol. Feeding results back through Observe keeps it aimed at orders that
// are still resting.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	nextID int64
	ids    []int64
	live   map[int64]liveOrder
}

func New(cfg Config) *Generator {
	if cfg.Users <= 0 {
		cfg.Users = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	if cfg.Spread <= 0 {
		cfg.Spread = 1
	}
	if cfg.MidPrice <= cfg.Spread {
		cfg.MidPrice = cfg.Spread + 1
	}
	return &Generator{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		live: make(map[int64]liveOrder),
	}
}

// Live is the number of orders the generator believes are resting.
func (g *Generator) Live() int {
	return len(g.live)
}

func (g *Generator) Next() *engine.Command {
	if len(g.ids) > 0 {
		r := g.rng.Float64()
		switch {
		case r < g.cfg.CancelRatio:
			return g.existing(engine.CommandCancel)
		case r < g.cfg.CancelRatio+g.cfg.MoveRatio:
			return g.existing(engine.CommandMove)
		case r < g.cfg.CancelRatio+g.cfg.MoveRatio+g.cfg.ReduceRatio:
			return g.existing(engine.CommandReduce)
		}
	}
	return g.place()
}

func (g *Generator) place() *engine.Command {
	g.nextID++
	action := orderbook.ActionAsk
	if g.rng.Intn(2) == 0 {
		action = orderbook.ActionBid
	}
	price := g.price(action)

	cmd := &engine.Command{
		Type:      engine.CommandPlace,
		Symbol:    g.cfg.Symbol,
		OrderType: orderbook.OrderTypeGTC.String(),
		OrderID:   g.nextID,
		UID:       g.rng.Int63n(int64(g.cfg.Users)) + 1,
		Price:     price,
		Size:      g.rng.Int63n(g.cfg.MaxSize) + 1,
		Action:    action.String(),
	}
	if action == orderbook.ActionBid {
		cmd.ReserveBidPrice = g.cfg.MidPrice + g.cfg.Spread
	}
	if g.rng.Float64() < g.cfg.IOCRatio {
		cmd.OrderType = orderbook.OrderTypeIOC.String()
	} else {
		g.track(cmd.OrderID, liveOrder{uid: cmd.UID, action: action, price: price})
	}
	return cmd
}

// price leans bids below and asks above the mid so the book keeps depth
// while still crossing regularly.
func (g *Generator) price(action orderbook.OrderAction) int64 {
	offset := g.rng.Int63n(g.cfg.Spread + 1)
	if g.rng.Intn(4) == 0 {
		offset = -offset
	}
	if action == orderbook.ActionBid {
		return g.cfg.MidPrice - offset
	}
	return g.cfg.MidPrice + offset
}

func (g *Generator) existing(t engine.CommandType) *engine.Command {
	idx := g.rng.Intn(len(g.ids))
	id := g.ids[idx]
	o := g.live[id]

	cmd := &engine.Command{
		Type:    t,
		Symbol:  g.cfg.Symbol,
		OrderID: id,
		UID:     o.uid,
	}
	switch t {
	case engine.CommandCancel:
		g.untrack(idx)
	case engine.CommandMove:
		cmd.Price = g.price(o.action)
		o.price = cmd.Price
		g.live[id] = o
	case engine.CommandReduce:
		cmd.Size = g.rng.Int63n(g.cfg.MaxSize) + 1
	}
	return cmd
}

func (g *Generator) track(id int64, o liveOrder) {
	g.live[id] = o
	g.ids = append(g.ids, id)
}

func (g *Generator) untrack(idx int) {
	id := g.ids[idx]
	last := len(g.ids) - 1
	g.ids[idx] = g.ids[last]
	g.ids = g.ids[:last]
	delete(g.live, id)
}

func (g *Generator) forget(id int64) {
	if _, ok := g.live[id]; !ok {
		return
	}
	for i, v := range g.ids {
		if v == id {
			g.untrack(i)
			return
		}
	}
}

// Observe drops orders the book reports as completed.
func (g *Generator) Observe(cmd *engine.Command, resp *response.CommandResponse) {
	if !resp.Success() {
		if resp.ResultCode == orderbook.ResultUnknownOrderID {
			g.forget(cmd.OrderID)
		}
		return
	}
	block := resp.TradeEventsBlock
	if block == nil {
		return
	}
	for _, tr := range block.Trades {
		if tr.MakerCompleted {
			g.forget(tr.MakerOrderID)
		}
	}
	if block.TakerCompleted {
		g.forget(block.TakerOrderID)
	}
}
