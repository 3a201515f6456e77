package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/response"
)

type ExecutionEventType string

const (
	ExecutionEventTrade ExecutionEventType = "TRADE"
	// reduce produced by cancel or reduce commands
	ExecutionEventReduce ExecutionEventType = "REDUCE"
	// unfilled remainder of an IOC or FOK_BUDGET order, or a duplicate placement
	ExecutionEventReject ExecutionEventType = "REJECT"
)

// ExecutionEvent is one row of execution_events. A command produces one row
// per trade plus at most one reduce or reject row.
type ExecutionEvent struct {
	EventID        string             `gorm:"column:event_id;primaryKey" json:"event_id"`
	Symbol         string             `gorm:"column:symbol" json:"symbol"`
	CommandType    engine.CommandType `gorm:"column:command_type" json:"command_type"`
	EventType      ExecutionEventType `gorm:"column:event_type" json:"event_type"`
	Seq            int                `gorm:"column:seq" json:"seq"`
	TakerOrderID   int64              `gorm:"column:taker_order_id" json:"taker_order_id"`
	TakerUID       int64              `gorm:"column:taker_uid" json:"taker_uid"`
	TakerAction    string             `gorm:"column:taker_action" json:"taker_action"`
	TakerCompleted bool               `gorm:"column:taker_completed" json:"taker_completed"`
	MakerOrderID   int64              `gorm:"column:maker_order_id" json:"maker_order_id,omitempty"`
	MakerUID       int64              `gorm:"column:maker_uid" json:"maker_uid,omitempty"`
	MakerCompleted bool               `gorm:"column:maker_completed" json:"maker_completed,omitempty"`
	Price          int64              `gorm:"column:price" json:"price"`
	Volume         int64              `gorm:"column:volume" json:"volume"`
	ReservePrice   int64              `gorm:"column:reserve_price" json:"reserve_price"`
	EventTime      time.Time          `gorm:"column:event_time" json:"event_time"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (ExecutionEvent) TableName() string {
	return "execution_events"
}

// FromResponse flattens the events of one processed command. Commands that
// produced no events yield nil.
func FromResponse(cmd *engine.Command, resp *response.CommandResponse, ts time.Time) []*ExecutionEvent {
	if resp == nil || resp.TradeEventsBlock == nil {
		return nil
	}
	block := resp.TradeEventsBlock

	newEvent := func(seq int, typ ExecutionEventType) *ExecutionEvent {
		return &ExecutionEvent{
			EventID:        uuid.NewString(),
			Symbol:         cmd.Symbol,
			CommandType:    cmd.Type,
			EventType:      typ,
			Seq:            seq,
			TakerOrderID:   block.TakerOrderID,
			TakerUID:       block.TakerUID,
			TakerAction:    block.TakerAction.String(),
			TakerCompleted: block.TakerCompleted,
			EventTime:      ts,
		}
	}

	out := make([]*ExecutionEvent, 0, len(block.Trades)+1)
	for i, tr := range block.Trades {
		ev := newEvent(i, ExecutionEventTrade)
		ev.MakerOrderID = tr.MakerOrderID
		ev.MakerUID = tr.MakerUID
		ev.MakerCompleted = tr.MakerCompleted
		ev.Price = tr.Price
		ev.Volume = tr.Volume
		ev.ReservePrice = tr.ReserveBidPrice
		out = append(out, ev)
	}

	if r := block.ReduceEvent; r != nil {
		typ := ExecutionEventReduce
		if cmd.Type == engine.CommandPlace {
			typ = ExecutionEventReject
		}
		ev := newEvent(len(block.Trades), typ)
		ev.Price = r.Price
		ev.Volume = r.ReducedVolume
		ev.ReservePrice = r.ReserveBidPrice
		out = append(out, ev)
	}
	return out
}
