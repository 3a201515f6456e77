package response

import "github.com/joripage/matching-core/pkg/orderbook"

type TradeEvent struct {
	MakerOrderID    int64 `json:"maker_order_id"`
	MakerUID        int64 `json:"maker_uid"`
	MakerCompleted  bool  `json:"maker_completed"`
	Price           int64 `json:"price"`
	Volume          int64 `json:"volume"`
	ReserveBidPrice int64 `json:"reserve_bid_price"`
}

type ReduceEvent struct {
	Price           int64 `json:"price"`
	ReserveBidPrice int64 `json:"reserve_bid_price"`
	ReducedVolume   int64 `json:"reduced_volume"`
}

// TradeEventsBlock describes everything a command did to the taker order.
type TradeEventsBlock struct {
	TakerOrderID   int64                 `json:"taker_order_id"`
	TakerUID       int64                 `json:"taker_uid"`
	TakerCompleted bool                  `json:"taker_completed"`
	TakerAction    orderbook.OrderAction `json:"taker_action"`
	Trades         []TradeEvent          `json:"trades,omitempty"`
	ReduceEvent    *ReduceEvent          `json:"reduce_event,omitempty"`
}

type CommandResponse struct {
	ResultCode       orderbook.ResultCode `json:"result_code"`
	TradeEventsBlock *TradeEventsBlock    `json:"trade_events_block,omitempty"`
}

func (r *CommandResponse) Success() bool {
	return r.ResultCode == orderbook.ResultSuccess
}

// TradedVolume sums the volume of every trade in the response.
func (r *CommandResponse) TradedVolume() int64 {
	if r.TradeEventsBlock == nil {
		return 0
	}
	var total int64
	for _, tr := range r.TradeEventsBlock.Trades {
		total += tr.Volume
	}
	return total
}
