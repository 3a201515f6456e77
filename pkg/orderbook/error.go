package orderbook

import (
	"errors"
	"fmt"
)

type ResultCode int16

const (
	ResultSuccess                      ResultCode = 1
	ResultUnknownOrderID               ResultCode = -3002
	ResultUnsupportedCommand           ResultCode = -3004
	ResultMoveFailedPriceOverRiskLimit ResultCode = -3041
	ResultInvalidOrderSize             ResultCode = -3052
	ResultUnsupportedOrderType         ResultCode = -3053
)

func (c ResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "SUCCESS"
	case ResultUnknownOrderID:
		return "UNKNOWN_ORDER_ID"
	case ResultUnsupportedCommand:
		return "UNSUPPORTED_COMMAND"
	case ResultMoveFailedPriceOverRiskLimit:
		return "MOVE_FAILED_PRICE_OVER_RISK_LIMIT"
	case ResultInvalidOrderSize:
		return "INVALID_ORDER_SIZE"
	case ResultUnsupportedOrderType:
		return "UNSUPPORTED_ORDER_TYPE"
	}
	return fmt.Sprintf("RESULT(%d)", int16(c))
}

var (
	errInvalidState     = errors.New("invalid order book state")
	ErrNotEnoughVolume  = errors.New("not enough volume in book")
	errNegativeQuantity = errors.New("quantity must be positive")
)
