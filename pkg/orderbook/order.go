package orderbook

import "fmt"

type OrderAction uint8

const (
	ActionAsk OrderAction = 0
	ActionBid OrderAction = 1
)

func (a OrderAction) Opposite() OrderAction {
	if a == ActionBid {
		return ActionAsk
	}
	return ActionBid
}

func (a OrderAction) String() string {
	switch a {
	case ActionAsk:
		return "ASK"
	case ActionBid:
		return "BID"
	}
	return fmt.Sprintf("ACTION(%d)", uint8(a))
}

type OrderType uint8

const (
	OrderTypeGTC       OrderType = 0 // good till cancel
	OrderTypeIOC       OrderType = 1 // immediate or cancel
	OrderTypeFOKBudget OrderType = 2 // fill or kill, price holds the total notional
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeGTC:
		return "GTC"
	case OrderTypeIOC:
		return "IOC"
	case OrderTypeFOKBudget:
		return "FOK_BUDGET"
	}
	return fmt.Sprintf("ORDER_TYPE(%d)", uint8(t))
}

// Order is a resting order. Filled never exceeds Size, and an order with
// Filled == Size is never kept in the book.
type Order struct {
	OrderID         int64
	UID             int64
	Price           int64
	Size            int64
	Filled          int64
	ReserveBidPrice int64
	Action          OrderAction
	Timestamp       int64

	entry *levelEntry
}

func (o *Order) Remaining() int64 {
	return o.Size - o.Filled
}

func (o *Order) String() string {
	return fmt.Sprintf("[%d %s %d:%d/%d uid=%d]", o.OrderID, o.Action, o.Price, o.Filled, o.Size, o.UID)
}

type PlaceCommand struct {
	OrderType       OrderType
	OrderID         int64
	UID             int64
	Price           int64
	ReserveBidPrice int64
	Size            int64
	Action          OrderAction
	Timestamp       int64
}

type CancelCommand struct {
	OrderID int64
	UID     int64
}

type ReduceCommand struct {
	OrderID int64
	UID     int64
	Size    int64
}

type MoveCommand struct {
	OrderID  int64
	UID      int64
	NewPrice int64
}
