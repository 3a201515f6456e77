package fixgateway

import (
	"errors"
	"fmt"
	"math"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/orderbook"
)

var (
	errUnsupportedSide        = errors.New("unsupported side")
	errUnsupportedTimeInForce = errors.New("unsupported time in force")
	errUnsupportedOrdType     = errors.New("unsupported order type")
	errOffScale               = errors.New("value does not fit the instrument scale")
	errNonPositive            = errors.New("value must be positive")
)

const marketBidPrice = math.MaxInt64

func mapSide(side enum.Side) (string, error) {
	switch side {
	case enum.Side_BUY:
		return orderbook.ActionBid.String(), nil
	case enum.Side_SELL:
		return orderbook.ActionAsk.String(), nil
	}
	return "", fmt.Errorf("%w: %q", errUnsupportedSide, side)
}

// mapTimeInForce picks the book order type. DAY is treated as GTC, an absent
// value defaults to DAY as in FIX.
func mapTimeInForce(tif enum.TimeInForce) (orderbook.OrderType, error) {
	switch tif {
	case "", enum.TimeInForce_DAY, enum.TimeInForce_GOOD_TILL_CANCEL:
		return orderbook.OrderTypeGTC, nil
	case enum.TimeInForce_IMMEDIATE_OR_CANCEL:
		return orderbook.OrderTypeIOC, nil
	case enum.TimeInForce_FILL_OR_KILL:
		return orderbook.OrderTypeFOKBudget, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnsupportedTimeInForce, tif)
}

// toUnits converts a FIX decimal into integer book units using scale units
// per whole. A zero scale means 1.
func toUnits(v decimal.Decimal, scale int64) (int64, error) {
	if scale <= 0 {
		scale = 1
	}
	if !v.IsPositive() {
		return 0, fmt.Errorf("%w: %s", errNonPositive, v)
	}
	units := v.Mul(decimal.NewFromInt(scale))
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s x %d", errOffScale, v, scale)
	}
	return units.IntPart(), nil
}

func fromUnits(v int64, scale int64) decimal.Decimal {
	if scale <= 1 {
		return decimal.NewFromInt(v)
	}
	return decimal.NewFromInt(v).Div(decimal.NewFromInt(scale))
}

// buildPlaceCommand maps a NewOrderSingle to a place command. Market orders
// become IOC orders priced through the whole book. For FOK the limit price
// times the quantity becomes the order budget.
func buildPlaceCommand(req *NewOrderSingle, spec *orderbook.SymbolSpec, orderID, uid int64) (*engine.Command, error) {
	action, err := mapSide(req.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := mapTimeInForce(req.TimeInForce)
	if err != nil {
		return nil, err
	}
	size, err := toUnits(req.OrderQty, spec.BaseScaleK)
	if err != nil {
		return nil, fmt.Errorf("order qty: %w", err)
	}

	var price int64
	switch req.OrdType {
	case enum.OrdType_LIMIT:
		price, err = toUnits(req.Price, spec.QuoteScaleK)
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
	case enum.OrdType_MARKET:
		if orderType == orderbook.OrderTypeFOKBudget {
			return nil, fmt.Errorf("%w: market FOK", errUnsupportedOrdType)
		}
		orderType = orderbook.OrderTypeIOC
		price = 0
		if action == orderbook.ActionBid.String() {
			price = marketBidPrice
		}
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedOrdType, req.OrdType)
	}

	cmd := &engine.Command{
		Type:      engine.CommandPlace,
		Symbol:    req.Symbol,
		OrderType: orderType.String(),
		OrderID:   orderID,
		UID:       uid,
		Price:     price,
		Size:      size,
		Action:    action,
		Timestamp: req.TransactTime.UnixNano(),
	}
	if action == orderbook.ActionBid.String() {
		cmd.ReserveBidPrice = price
	}
	if orderType == orderbook.OrderTypeFOKBudget {
		budget := decimal.NewFromInt(price).Mul(decimal.NewFromInt(size))
		if budget.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
			return nil, fmt.Errorf("%w: budget overflows", errOffScale)
		}
		cmd.Price = budget.IntPart()
	}
	return cmd, nil
}
