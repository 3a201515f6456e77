package engine

import (
	"fmt"
	"strings"

	"github.com/joripage/matching-core/pkg/orderbook"
)

type CommandType string

const (
	CommandPlace  CommandType = "place"
	CommandCancel CommandType = "cancel"
	CommandReduce CommandType = "reduce"
	CommandMove   CommandType = "move"
	// CommandReset clears the book of the command's symbol.
	CommandReset CommandType = "reset"
)

// Command is the transport form of an order-lifecycle request. For move
// commands Price carries the new price; for reduce commands Size carries the
// amount to reduce by.
type Command struct {
	Type            CommandType `json:"type"`
	Symbol          string      `json:"symbol"`
	OrderType       string      `json:"order_type,omitempty"`
	OrderID         int64       `json:"order_id"`
	UID             int64       `json:"uid"`
	Price           int64       `json:"price,omitempty"`
	ReserveBidPrice int64       `json:"reserve_bid_price,omitempty"`
	Size            int64       `json:"size,omitempty"`
	Action          string      `json:"action,omitempty"`
	Timestamp       int64       `json:"timestamp,omitempty"`
}

func (c *Command) String() string {
	return fmt.Sprintf("%s %s id=%d uid=%d %s %s %d@%d", c.Type, c.Symbol, c.OrderID, c.UID, c.Action, c.OrderType, c.Size, c.Price)
}

func ParseAction(s string) (orderbook.OrderAction, error) {
	switch strings.ToUpper(s) {
	case "BID", "BUY":
		return orderbook.ActionBid, nil
	case "ASK", "SELL":
		return orderbook.ActionAsk, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// ParseOrderType maps the textual order type. An empty value means GTC.
func ParseOrderType(s string) (orderbook.OrderType, error) {
	switch strings.ToUpper(s) {
	case "", "GTC":
		return orderbook.OrderTypeGTC, nil
	case "IOC":
		return orderbook.OrderTypeIOC, nil
	case "FOK_BUDGET", "FOK":
		return orderbook.OrderTypeFOKBudget, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrderType, s)
}

func (c *Command) placeCommand() (*orderbook.PlaceCommand, error) {
	action, err := ParseAction(c.Action)
	if err != nil {
		return nil, err
	}
	orderType, err := ParseOrderType(c.OrderType)
	if err != nil {
		return nil, err
	}
	return &orderbook.PlaceCommand{
		OrderType:       orderType,
		OrderID:         c.OrderID,
		UID:             c.UID,
		Price:           c.Price,
		ReserveBidPrice: c.ReserveBidPrice,
		Size:            c.Size,
		Action:          action,
		Timestamp:       c.Timestamp,
	}, nil
}
