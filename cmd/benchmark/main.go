package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/loadgen"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/response"
)

func main() {
	var numCommands int
	var seed int64
	var validate bool
	flag.IntVar(&numCommands, "n", 1_000_000, "number of commands")
	flag.Int64Var(&seed, "seed", 1, "generator seed")
	flag.BoolVar(&validate, "validate", false, "check book invariants after every command")
	flag.Parse()

	spec := &orderbook.SymbolSpec{SymbolID: 1, Symbol: "XBT_USD", Type: orderbook.SymbolTypeCurrencyExchangePair}
	e := engine.New(spec, nil, orderbook.WithValidation(validate))

	cfg := loadgen.DefaultConfig(spec.Symbol)
	cfg.Seed = seed
	gen := loadgen.New(cfg)

	// generate up front so only matching is timed
	cmds := make([]*engine.Command, 0, numCommands)
	shadow := engine.New(spec, nil)
	for i := 0; i < numCommands; i++ {
		cmd := gen.Next()
		resp, err := shadow.Process(cmd)
		if err != nil {
			panic(err)
		}
		gen.Observe(cmd, resp)
		cmds = append(cmds, cmd)
	}

	var trades, tradedVolume int64
	results := map[orderbook.ResultCode]int{}

	start := time.Now()
	for _, cmd := range cmds {
		raw := e.ProcessRaw(cmd)
		resp, err := response.ReadResult(raw)
		if err != nil {
			panic(err)
		}
		results[resp.ResultCode]++
		if resp.TradeEventsBlock != nil {
			trades += int64(len(resp.TradeEventsBlock.Trades))
			tradedVolume += resp.TradedVolume()
		}
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Commands       : %d\n", numCommands)
	fmt.Printf("Trades         : %d\n", trades)
	fmt.Printf("Traded volume  : %d\n", tradedVolume)
	for code, n := range results {
		fmt.Printf("%-15s: %d\n", code, n)
	}
	fmt.Printf("Resting orders : %d\n", e.Book().OrdersNum(orderbook.ActionAsk)+e.Book().OrdersNum(orderbook.ActionBid))
	fmt.Printf("Time taken     : %s\n", elapsed)
	fmt.Printf("Throughput     : %.0f cmd/s\n", float64(numCommands)/elapsed.Seconds())
	fmt.Printf("State hash     : %x\n", e.Book().StateHash())
}
